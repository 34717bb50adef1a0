package input

import (
	"strconv"
	"strings"
)

// keyNames maps user-facing key names onto robotgo key identifiers.
var keyNames = map[string]string{
	"return":    "enter",
	"enter":     "enter",
	"esc":       "esc",
	"escape":    "esc",
	"space":     "space",
	"spacebar":  "space",
	"tab":       "tab",
	"backspace": "backspace",
	"delete":    "delete",
	"del":       "delete",
	"insert":    "insert",
	"ins":       "insert",

	"ctrl":    "ctrl",
	"control": "ctrl",
	"lctrl":   "lctrl",
	"rctrl":   "rctrl",
	"alt":     "alt",
	"option":  "alt",
	"lalt":    "lalt",
	"ralt":    "ralt",
	"shift":   "shift",
	"lshift":  "lshift",
	"rshift":  "rshift",
	"win":     "cmd",
	"windows": "cmd",
	"super":   "cmd",
	"cmd":     "cmd",
	"command": "cmd",

	"home":      "home",
	"end":       "end",
	"page_up":   "pageup",
	"pageup":    "pageup",
	"pgup":      "pageup",
	"page_down": "pagedown",
	"pagedown":  "pagedown",
	"pgdn":      "pagedown",
	"up":        "up",
	"down":      "down",
	"left":      "left",
	"right":     "right",

	"caps_lock": "capslock",
	"capslock":  "capslock",
	"num_lock":  "num_lock",
	"numlock":   "num_lock",

	"num_enter": "num_enter",
	"num_plus":  "num+",
	"num_add":   "num+",
	"num_minus": "num-",
	"num_sub":   "num-",
	"num_mul":   "num*",
	"num_div":   "num/",
	"num_dot":   "num.",
}

func init() {
	for i := 1; i <= 12; i++ {
		f := "f" + strconv.Itoa(i)
		keyNames[f] = f
	}
	for i := 0; i <= 9; i++ {
		d := strconv.Itoa(i)
		keyNames["num_"+d] = "num" + d
		keyNames["num"+d] = "num" + d
	}
}

// NormalizeKey maps a user-facing key name to the injector's identifier.
// Unknown names are returned unchanged.
func NormalizeKey(name string) string {
	if mapped, ok := keyNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return mapped
	}
	return name
}
