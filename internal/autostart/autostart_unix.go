//go:build !windows

package autostart

import (
	"os"
	"path/filepath"
	"runtime"
	"text/template"
)

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Exec}}</string>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const xdgDesktopEntry = `[Desktop Entry]
Type=Application
Name={{.Name}}
Exec={{.Command}}
X-GNOME-Autostart-enabled=true
NoDisplay=true
`

var (
	plistTmpl   = template.Must(template.New("plist").Parse(macLaunchAgentPlist))
	desktopTmpl = template.Must(template.New("desktop").Parse(xdgDesktopEntry))
)

// path returns the login item file for the entry.
func path(e *Entry) (string, error) {
	home, err := e.homeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "LaunchAgents", "com."+e.Name+".agent.plist"), nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" || e.home != "" {
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "autostart", e.Name+".desktop"), nil
}

func enable(e *Entry) error {
	p, err := path(e)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}

	f, err := os.Create(p)
	if err != nil {
		return err
	}
	defer f.Close()

	if runtime.GOOS == "darwin" {
		return plistTmpl.Execute(f, struct {
			Label string
			Exec  string
			Args  []string
		}{"com." + e.Name + ".agent", e.Exec, e.Args})
	}
	return desktopTmpl.Execute(f, struct{ Name, Command string }{e.Name, e.commandLine()})
}

func disable(e *Entry) error {
	p, err := path(e)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func enabled(e *Entry) bool {
	p, err := path(e)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}
