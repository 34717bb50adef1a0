//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14
	WM_QUIT        = 0x0012
	WM_KEYDOWN     = 0x0100
	WM_KEYUP       = 0x0101
	WM_SYSKEYDOWN  = 0x0104
	WM_SYSKEYUP    = 0x0105

	WM_LBUTTONDOWN = 0x0201
	WM_LBUTTONUP   = 0x0202
	WM_RBUTTONDOWN = 0x0204
	WM_RBUTTONUP   = 0x0205
	WM_MBUTTONDOWN = 0x0207
	WM_MBUTTONUP   = 0x0208
)

type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type winMSG struct {
	Hwnd    syscall.Handle
	Message uint32
	Wparam  uintptr
	Lparam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

var (
	instanceManager atomic.Pointer[Manager]
	keyboardHook    uintptr
	mouseHook       uintptr
	hookThreadID    atomic.Uint32
)

func (m *Manager) startPlatform() error {
	instanceManager.Store(m)
	ready := make(chan error, 1)

	// Hooks must be registered in the same thread that runs the message loop
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		hookThreadID.Store(windows.GetCurrentThreadId())
		hMod, _, _ := procGetModuleHandle.Call(0)

		var err error
		keyboardHook, _, err = procSetWindowsHookEx.Call(WH_KEYBOARD_LL, syscall.NewCallback(keyboardHookProc), hMod, 0)
		if keyboardHook == 0 {
			ready <- fmt.Errorf("set keyboard hook: %w", err)
			return
		}
		mouseHook, _, err = procSetWindowsHookEx.Call(WH_MOUSE_LL, syscall.NewCallback(mouseHookProc), hMod, 0)
		if mouseHook == 0 {
			procUnhookWindowsHookEx.Call(keyboardHook)
			ready <- fmt.Errorf("set mouse hook: %w", err)
			return
		}

		m.log.Info("Hotkey Engine: Windows global hooks started")
		ready <- nil

		var msg winMSG
		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
		}

		procUnhookWindowsHookEx.Call(keyboardHook)
		procUnhookWindowsHookEx.Call(mouseHook)
		m.log.Info("Hotkey Engine: Windows global hooks removed")
	}()

	return <-ready
}

func (m *Manager) stopPlatform() {
	if id := hookThreadID.Load(); id != 0 {
		procPostThreadMessage.Call(uintptr(id), WM_QUIT, 0, 0)
	}
}

func keyboardHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if m := instanceManager.Load(); nCode == 0 && m != nil {
		kbd := (*KBDLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		if name := vkCodeToName(kbd.VkCode); name != "" {
			isDown := wParam == WM_KEYDOWN || wParam == WM_SYSKEYDOWN
			m.UpdateState(name, isDown)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(keyboardHook, uintptr(nCode), wParam, lParam)
	return ret
}

func mouseHookProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if m := instanceManager.Load(); nCode == 0 && m != nil {
		switch wParam {
		case WM_LBUTTONDOWN:
			m.UpdateState(MouseLeft, true)
		case WM_LBUTTONUP:
			m.UpdateState(MouseLeft, false)
		case WM_RBUTTONDOWN:
			m.UpdateState(MouseRight, true)
		case WM_RBUTTONUP:
			m.UpdateState(MouseRight, false)
		case WM_MBUTTONDOWN:
			m.UpdateState(MouseMiddle, true)
		case WM_MBUTTONUP:
			m.UpdateState(MouseMiddle, false)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(mouseHook, uintptr(nCode), wParam, lParam)
	return ret
}

func vkCodeToName(vk uint32) string {
	switch vk {
	case 0x11, 0xA2, 0xA3:
		return "CTRL"
	case 0x12, 0xA4, 0xA5:
		return "ALT"
	case 0x10, 0xA0, 0xA1:
		return "SHIFT"
	case 0x5B, 0x5C:
		return "CMD"
	case 0x20:
		return "SPACE"
	case 0x0D:
		return "ENTER"
	case 0x1B:
		return "ESC"
	case 0x08:
		return "BACKSPACE"
	case 0x09:
		return "TAB"
	case 0x21:
		return "PAGEUP"
	case 0x22:
		return "PAGEDOWN"
	case 0x23:
		return "END"
	case 0x24:
		return "HOME"
	case 0x25:
		return "LEFT"
	case 0x26:
		return "UP"
	case 0x27:
		return "RIGHT"
	case 0x28:
		return "DOWN"
	case 0x2D:
		return "INSERT"
	case 0x2E:
		return "DELETE"
	}

	// Letters and digits share their ASCII codes
	if (vk >= 0x41 && vk <= 0x5A) || (vk >= 0x30 && vk <= 0x39) {
		return string(rune(vk))
	}
	// Numpad digits count as plain digits for hotkeys
	if vk >= 0x60 && vk <= 0x69 {
		return string(rune('0' + vk - 0x60))
	}
	if vk >= 0x70 && vk <= 0x7B {
		return fmt.Sprintf("F%d", vk-0x6F)
	}
	return ""
}
