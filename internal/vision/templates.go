package vision

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// TempPrefix marks template files created by captures.
const TempPrefix = "temp_template_"

// Template size limits.
const (
	MinTemplateSide   = 5
	MaxTemplateWidth  = 1920
	MaxTemplateHeight = 1080
)

// Template errors
var (
	ErrTemplateMissing  = errors.New("template not found")
	ErrTemplateTooSmall = errors.New("template too small")
	ErrTemplateTooLarge = errors.New("template too large")
)

var templateExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// TemplateStore saves, finds and removes temporary template images.
type TemplateStore struct {
	dir string
	log *zap.Logger
}

// NewTemplateStore creates a store rooted at dir; empty means the working directory.
func NewTemplateStore(dir string) *TemplateStore {
	if dir == "" {
		dir = "."
	}
	return &TemplateStore{dir: dir, log: zap.L().Named("templates")}
}

// Dir returns the directory holding temporary templates.
func (s *TemplateStore) Dir() string {
	return s.dir
}

// TempName returns a fresh file name such as temp_template_1a2b3c4d.png.
func TempName() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return TempPrefix + id[:8] + ".png"
}

// SaveTemp writes img as a new PNG temp template and returns its path.
func (s *TemplateStore) SaveTemp(img image.Image) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create template dir: %w", err)
	}
	path := filepath.Join(s.dir, TempName())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create template: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode template: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	s.log.Info("Templates: saved capture", zap.String("path", path))
	return path, nil
}

// Latest returns the newest temp template, or ErrTemplateMissing.
func (s *TemplateStore) Latest() (string, error) {
	files, err := s.list()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", ErrTemplateMissing
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].mod.After(files[j].mod)
	})
	return files[0].path, nil
}

// Cleanup removes every temp template and returns how many were deleted.
func (s *TemplateStore) Cleanup() (int, error) {
	files, err := s.list()
	if err != nil {
		return 0, err
	}
	var errs []error
	removed := 0
	for _, f := range files {
		if err := os.Remove(f.path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("Templates: cleaned up temporary files", zap.Int("count", removed))
	}
	return removed, errors.Join(errs...)
}

type tempFile struct {
	path string
	mod  time.Time
}

func (s *TemplateStore) list() ([]tempFile, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	var files []tempFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, TempPrefix) {
			continue
		}
		if !templateExts[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, tempFile{path: filepath.Join(s.dir, name), mod: info.ModTime()})
	}
	return files, nil
}

// LoadTemplate decodes an image file into RGBA.
func LoadTemplate(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateMissing, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode template %s: %w", path, err)
	}
	return toRGBA(img), nil
}

// ValidateTemplate checks that the file exists and its size is usable.
func ValidateTemplate(path string) error {
	img, err := LoadTemplate(path)
	if err != nil {
		return err
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w < MinTemplateSide || h < MinTemplateSide {
		return fmt.Errorf("%w: %dx%d", ErrTemplateTooSmall, w, h)
	}
	if w > MaxTemplateWidth || h > MaxTemplateHeight {
		return fmt.Errorf("%w: %dx%d", ErrTemplateTooLarge, w, h)
	}
	return nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}
