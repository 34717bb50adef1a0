package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"sync"
)

const iconSize = 16

var (
	iconOnce sync.Once
	icons    [2][]byte
)

// Icon returns a 16x16 ICO with a green (running) or red (stopped) dot.
func Icon(running bool) []byte {
	iconOnce.Do(func() {
		icons[0] = ico(dot(color.RGBA{R: 220, G: 40, B: 40, A: 255}))
		icons[1] = ico(dot(color.RGBA{R: 40, G: 190, B: 60, A: 255}))
	})
	if running {
		return icons[1]
	}
	return icons[0]
}

func dot(fill color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	c := float64(iconSize-1) / 2
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			if dx*dx+dy*dy <= 6.5*6.5 {
				img.SetRGBA(x, y, fill)
			}
		}
	}
	return img
}

// ico wraps a PNG in a single-image ICO container.
func ico(img image.Image) []byte {
	var body bytes.Buffer
	_ = png.Encode(&body, img)

	var out bytes.Buffer
	// ICONDIR
	binary.Write(&out, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	out.Write([]byte{iconSize, iconSize, 0, 0})
	binary.Write(&out, binary.LittleEndian, [2]uint16{1, 32})
	binary.Write(&out, binary.LittleEndian, [2]uint32{uint32(body.Len()), 6 + 16})
	out.Write(body.Bytes())
	return out.Bytes()
}
