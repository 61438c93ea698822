package config

import (
	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of every formula
// discovered by a Loader.
type Model struct {
	Formulas map[string]*FormulaDefinition
	// Order lists formula names in the order they were loaded.
	Order []string
}

// FormulaDefinition is the raw form of a `formula` block. Static fields are
// already evaluated; fields typed hcl.Expression are evaluated later, once
// the install location and build options are known. Absent expressions are nil.
type FormulaDefinition struct {
	Name     string
	File     string
	Desc     string
	Homepage string
	License  string
	Version  string
	KegOnly  string

	Sources           []*SourceDefinition
	Head              *HeadDefinition
	Dependencies      []*DependencyDefinition
	Options           []*OptionDefinition
	DeprecatedOptions []*DeprecatedOptionDefinition

	Install     *InstallDefinition
	PostInstall *PostInstallDefinition
	Caveats     hcl.Expression
	Service     *ServiceDefinition
	Test        *TestDefinition
}

// SourceDefinition is one platform-conditional `source` block.
type SourceDefinition struct {
	OS       string
	Arch     string
	URL      string
	SHA256   string
	Strategy string
}

// HeadDefinition is the VCS source used for head builds.
type HeadDefinition struct {
	URL    string
	Branch string
}

// DependencyDefinition is a `depends_on` block.
type DependencyDefinition struct {
	Name  string
	Phase string
}

// OptionDefinition is an `option` block.
type OptionDefinition struct {
	Name        string
	Description string
	Default     bool
}

// DeprecatedOptionDefinition maps an old option name onto its replacement.
type DeprecatedOptionDefinition struct {
	Name       string
	ReplacedBy string
}

// InstallDefinition holds the ordered build stages and extra environment.
type InstallDefinition struct {
	Env    hcl.Expression
	Stages []*StageDefinition
}

// StageDefinition is a single `stage` block. Exactly one of Command or Args
// is expected to be set.
type StageDefinition struct {
	Name    string
	Command hcl.Expression
	Args    hcl.Expression
	When    hcl.Expression
	Dir     hcl.Expression
}

// PostInstallDefinition describes the first-run initialization.
type PostInstallDefinition struct {
	Mkpath        hcl.Expression
	DataDir       hcl.Expression
	LegacyDataDir hcl.Expression
	Initialize    hcl.Expression
	Marker        string
	SkipEnv       string
}

// ServiceDefinition describes how a supervisor should run the package.
type ServiceDefinition struct {
	Run         hcl.Expression
	KeepAlive   hcl.Expression
	Environment hcl.Expression
	WorkingDir  hcl.Expression
	LogPath     hcl.Expression
}

// TestDefinition holds smoke-test commands and output assertions.
type TestDefinition struct {
	SkipEnv    string
	Commands   []*TestCommandDefinition
	Assertions []*AssertionDefinition
}

// TestCommandDefinition is a `command` block inside `test`.
type TestCommandDefinition struct {
	Name string
	Args hcl.Expression
}

// AssertionDefinition is an `assert_output` block inside `test`.
type AssertionDefinition struct {
	Name   string
	Args   hcl.Expression
	Equals hcl.Expression
}
