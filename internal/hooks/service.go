package hooks

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ServiceSpec describes how a supervisor should run an installed formula.
type ServiceSpec struct {
	Name        string
	Label       string
	Run         []string
	KeepAlive   bool
	Environment map[string]string
	WorkingDir  string
	LogPath     string
}

// Service evaluates the service block of t. It returns nil when the formula
// declares no service.
func (r Runtime) Service(t Target) (*ServiceSpec, error) {
	f := t.Formula
	def := f.Service
	if def == nil {
		return nil, nil
	}
	scope, _, err := r.scope(t)
	if err != nil {
		return nil, err
	}
	wrap := func(field string, err error) error {
		return fmt.Errorf("evaluating service %s of %s: %w", field, f.Name, err)
	}

	spec := &ServiceSpec{Name: f.Name, Label: "brewgridgo." + f.Name}
	if spec.Run, err = r.Evaluator.Strings(def.Run, scope); err != nil {
		return nil, wrap("run", err)
	}
	if len(spec.Run) == 0 {
		return nil, fmt.Errorf("service of %s has an empty run command", f.Name)
	}
	if spec.KeepAlive, err = r.Evaluator.Bool(def.KeepAlive, scope); err != nil {
		return nil, wrap("keep_alive", err)
	}
	if spec.Environment, err = r.Evaluator.StringMap(def.Environment, scope); err != nil {
		return nil, wrap("environment", err)
	}
	if spec.WorkingDir, err = r.Evaluator.String(def.WorkingDir, scope); err != nil {
		return nil, wrap("working_dir", err)
	}
	if spec.LogPath, err = r.Evaluator.String(def.LogPath, scope); err != nil {
		return nil, wrap("log_path", err)
	}
	if spec.LogPath == "" {
		spec.LogPath = r.Layout.LogFile(f.Name)
	}
	return spec, nil
}

type envVar struct{ Key, Value string }

func (s *ServiceSpec) sortedEnv() []envVar {
	keys := make([]string, 0, len(s.Environment))
	for k := range s.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]envVar, len(keys))
	for i, k := range keys {
		out[i] = envVar{k, s.Environment[k]}
	}
	return out
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// systemdQuote quotes one argument for an ExecStart line.
func systemdQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"'\\$%") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `$$`, `%`, `%%`)
	return `"` + r.Replace(s) + `"`
}

var funcs = template.FuncMap{"xml": xmlEscape, "sq": systemdQuote}

var plistTemplate = template.Must(template.New("plist").Funcs(funcs).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{xml .Label}}</string>
	<key>ProgramArguments</key>
	<array>
{{- range .Run}}
		<string>{{xml .}}</string>
{{- end}}
	</array>
	<key>KeepAlive</key>
	<{{if .KeepAlive}}true{{else}}false{{end}}/>
	<key>RunAtLoad</key>
	<true/>
{{- with .Env}}
	<key>EnvironmentVariables</key>
	<dict>
{{- range .}}
		<key>{{xml .Key}}</key>
		<string>{{xml .Value}}</string>
{{- end}}
	</dict>
{{- end}}
{{- with .WorkingDir}}
	<key>WorkingDirectory</key>
	<string>{{xml .}}</string>
{{- end}}
	<key>StandardOutPath</key>
	<string>{{xml .LogPath}}</string>
	<key>StandardErrorPath</key>
	<string>{{xml .LogPath}}</string>
</dict>
</plist>
`))

var unitTemplate = template.Must(template.New("unit").Funcs(funcs).Parse(`[Unit]
Description={{.Name}}

[Service]
Type=simple
ExecStart={{range $i, $a := .Run}}{{if $i}} {{end}}{{sq $a}}{{end}}
Restart={{if .KeepAlive}}always{{else}}no{{end}}
{{- range .Env}}
Environment="{{.Key}}={{.Value}}"
{{- end}}
{{- with .WorkingDir}}
WorkingDirectory={{.}}
{{- end}}
StandardOutput=append:{{.LogPath}}
StandardError=append:{{.LogPath}}

[Install]
WantedBy=default.target
`))

func (s *ServiceSpec) render(t *template.Template) string {
	data := struct {
		*ServiceSpec
		Env []envVar
	}{s, s.sortedEnv()}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		// The templates only read plain fields.
		panic(err)
	}
	return buf.String()
}

// Plist renders a launchd property list.
func (s *ServiceSpec) Plist() string {
	return s.render(plistTemplate)
}

// SystemdUnit renders a systemd user unit.
func (s *ServiceSpec) SystemdUnit() string {
	return s.render(unitTemplate)
}
