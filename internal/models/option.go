package models

// OptionKind distinguishes the three option lists. They share one shape; push
// options are emitted quoted and so are validated with one extra rule.
type OptionKind string

const (
	OptionPush        OptionKind = "push"
	OptionExtraServer OptionKind = "extra_server"
	OptionExtraClient OptionKind = "extra_client"
)

// NamedOption — пара name/value, из которой собирается одна директива.
type NamedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
