// Package config holds the debugger's launch arguments and workspace
// configuration.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"go.trai.ch/zerr"

	"github.com/ormasoftchile/pipedbg/pkg/pipeline"
)

// ErrInvalidLaunchArgs is returned when launch arguments fail validation.
var ErrInvalidLaunchArgs = zerr.New("invalid launch arguments")

// ControllerTuning adjusts the controller after it is created.
type ControllerTuning struct {
	Long         int    `json:"long,omitempty" jsonschema:"minimum=1,description=Screenshot target long side; takes precedence over short"`
	Short        int    `json:"short,omitempty" jsonschema:"minimum=1,description=Screenshot target short side"`
	PackageEntry string `json:"packageEntry,omitempty" jsonschema:"description=Default app package entry activity"`
	Package      string `json:"package,omitempty" jsonschema:"description=Default app package"`
}

// LaunchArgs are the arguments of a launch or attach request.
type LaunchArgs struct {
	Resource      string            `json:"resource" jsonschema:"minLength=1,description=Resource directory holding the pipeline"`
	Agent         string            `json:"agent" jsonschema:"description=Path of the controller agent binaries"`
	Task          string            `json:"task" jsonschema:"minLength=1,description=Entry task posted to the engine"`
	Param         map[string]any    `json:"param,omitempty" jsonschema:"description=Task parameter overrides"`
	Log           string            `json:"log,omitempty" jsonschema:"description=Engine log directory"`
	Controller    *ControllerTuning `json:"controller,omitempty"`
	Device        string            `json:"device,omitempty" jsonschema:"description=Device name or address; the first device found when empty"`
	Dialect       string            `json:"dialect,omitempty" jsonschema:"enum=framework,enum=wpf,description=Pipeline dialect"`
	CustomActions []string          `json:"customActions,omitempty" jsonschema:"description=Custom action names registered with the instance"`
}

// ParamJSON returns the task parameters encoded for the engine.
func (a LaunchArgs) ParamJSON() json.RawMessage {
	if len(a.Param) == 0 {
		return json.RawMessage("{}")
	}
	b, err := json.Marshal(a.Param)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

// GenerateLaunchSchema produces the JSON Schema of launch arguments.
func GenerateLaunchSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.AllowAdditionalProperties = true

	s := r.Reflect(&LaunchArgs{})
	s.ID = "https://github.com/ormasoftchile/pipedbg/schemas/launch-v0.json"
	s.Title = "pipedbg launch arguments"
	s.Description = "Arguments of the launch and attach debug requests"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

var launchSchema = sync.OnceValues(func() (*sjsonschema.Schema, error) {
	data, err := GenerateLaunchSchema()
	if err != nil {
		return nil, err
	}
	doc, err := sjsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource("launch-v0.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile("launch-v0.json")
})

// ParseLaunchArgs validates raw against the launch schema and decodes it.
// Unknown fields, such as those an editor adds to every request, are
// ignored.
func ParseLaunchArgs(raw []byte) (LaunchArgs, error) {
	var args LaunchArgs
	sch, err := launchSchema()
	if err != nil {
		return args, err
	}

	doc, err := sjsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return args, zerr.Wrap(ErrInvalidLaunchArgs, err.Error())
	}
	if err := sch.Validate(doc); err != nil {
		return args, zerr.Wrap(ErrInvalidLaunchArgs, describe(err))
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, zerr.Wrap(ErrInvalidLaunchArgs, err.Error())
	}
	if _, ok := pipeline.DialectByName(args.Dialect); !ok {
		return args, zerr.With(zerr.Wrap(ErrInvalidLaunchArgs, "unknown dialect"), "dialect", args.Dialect)
	}
	return args, nil
}

func describe(err error) string {
	ve, ok := err.(*sjsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var parts []string
	for _, cause := range flatten(ve) {
		path := "/" + strings.Join(cause.InstanceLocation, "/")
		parts = append(parts, fmt.Sprintf("%s: %v", path, cause.ErrorKind))
	}
	return strings.Join(parts, "; ")
}

func flatten(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flatten(cause)...)
	}
	return flat
}
