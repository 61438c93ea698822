package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is used to decode all top-level blocks from any file.
type fileRoot struct {
	Formulas []*formulaBlock `hcl:"formula,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type formulaBlock struct {
	Name     string `hcl:"name,label"`
	Desc     string `hcl:"desc,optional"`
	Homepage string `hcl:"homepage,optional"`
	License  string `hcl:"license,optional"`
	Version  string `hcl:"version,optional"`
	KegOnly  string `hcl:"keg_only,optional"`

	Sources           []*sourceBlock           `hcl:"source,block"`
	Head              *headBlock               `hcl:"head,block"`
	Dependencies      []*dependencyBlock       `hcl:"depends_on,block"`
	Options           []*optionBlock           `hcl:"option,block"`
	DeprecatedOptions []*deprecatedOptionBlock `hcl:"deprecated_option,block"`

	Install     *installBlock     `hcl:"install,block"`
	PostInstall *postInstallBlock `hcl:"post_install,block"`
	Caveats     hcl.Expression    `hcl:"caveats,optional"`
	Service     *serviceBlock     `hcl:"service,block"`
	Test        *testBlock        `hcl:"test,block"`
}

type sourceBlock struct {
	OS       string         `hcl:"os,optional"`
	Arch     string         `hcl:"arch,optional"`
	URL      hcl.Expression `hcl:"url"`
	SHA256   string         `hcl:"sha256,optional"`
	Strategy string         `hcl:"strategy,optional"`
}

type headBlock struct {
	URL    string `hcl:"url"`
	Branch string `hcl:"branch,optional"`
}

type dependencyBlock struct {
	Name  string `hcl:"name,label"`
	Phase string `hcl:"phase,optional"`
}

type optionBlock struct {
	Name        string `hcl:"name,label"`
	Description string `hcl:"description,optional"`
	Default     bool   `hcl:"default,optional"`
}

type deprecatedOptionBlock struct {
	Name       string `hcl:"name,label"`
	ReplacedBy string `hcl:"replaced_by"`
}

type installBlock struct {
	Env    hcl.Expression `hcl:"env,optional"`
	Stages []*stageBlock  `hcl:"stage,block"`
}

type stageBlock struct {
	Name    string         `hcl:"name,label"`
	Command hcl.Expression `hcl:"command,optional"`
	Args    hcl.Expression `hcl:"args,optional"`
	When    hcl.Expression `hcl:"when,optional"`
	Dir     hcl.Expression `hcl:"dir,optional"`
}

type postInstallBlock struct {
	Mkpath        hcl.Expression `hcl:"mkpath,optional"`
	DataDir       hcl.Expression `hcl:"data_dir,optional"`
	LegacyDataDir hcl.Expression `hcl:"legacy_data_dir,optional"`
	Initialize    hcl.Expression `hcl:"initialize,optional"`
	Marker        string         `hcl:"marker,optional"`
	SkipEnv       string         `hcl:"skip_env,optional"`
}

type serviceBlock struct {
	Run         hcl.Expression `hcl:"run"`
	KeepAlive   hcl.Expression `hcl:"keep_alive,optional"`
	Environment hcl.Expression `hcl:"environment,optional"`
	WorkingDir  hcl.Expression `hcl:"working_dir,optional"`
	LogPath     hcl.Expression `hcl:"log_path,optional"`
}

type testBlock struct {
	SkipEnv    string              `hcl:"skip_env,optional"`
	Commands   []*testCommandBlock `hcl:"command,block"`
	Assertions []*assertBlock      `hcl:"assert_output,block"`
}

type testCommandBlock struct {
	Name string         `hcl:"name,label"`
	Args hcl.Expression `hcl:"args"`
}

type assertBlock struct {
	Name   string         `hcl:"name,label"`
	Args   hcl.Expression `hcl:"args"`
	Equals hcl.Expression `hcl:"equals"`
}
