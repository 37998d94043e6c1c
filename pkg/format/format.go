package format

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/flowgen/pkg/ir"
)

// Target selects the language a program is printed in.
type Target string

// Supported targets.
const (
	TargetGo         Target = "go"
	TargetJavaScript Target = "javascript"
)

// Targets returns all supported targets.
func Targets() []Target {
	return []Target{TargetGo, TargetJavaScript}
}

// ParseTarget converts a name (or common abbreviation) to a Target.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "go", "golang":
		return TargetGo, nil
	case "javascript", "js", "node":
		return TargetJavaScript, nil
	default:
		return "", fmt.Errorf("unknown target %q (expected go or javascript)", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseTarget.
func (t *Target) UnmarshalText(text []byte) error {
	parsed, err := ParseTarget(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Extension returns the conventional file extension for the target.
func (t Target) Extension() string {
	if t == TargetJavaScript {
		return ".js"
	}
	return ".go"
}

// Format prints a program for the given target.
// The returned text is validated by the target's own toolchain library.
func Format(prog *ir.Program, target Target) (string, error) {
	switch target {
	case TargetGo, "":
		return formatGo(prog)
	case TargetJavaScript:
		return formatJavaScript(prog)
	default:
		return "", fmt.Errorf("unknown target %q", target)
	}
}
