package registry

import "github.com/leapstack-labs/flowgen/pkg/core"

// legacyValueAlias accepts the editor's original "input" port id for value ports.
var legacyValueAlias = map[string]string{"input": PortValue}

func builtins() []TypeSpec {
	return []TypeSpec{
		{
			Type:        core.NodeTypeText,
			Description: "Binds a literal string",
			Outputs: []core.PropertyDescriptor{
				{ID: PortOutput, Name: "Output", DataType: core.DataTypeString},
			},
		},
		{
			Type:        core.NodeTypeJSON,
			Description: "Parses a JSON document, falling back to an empty object",
			Outputs: []core.PropertyDescriptor{
				{ID: PortOutput, Name: "Output", DataType: core.DataTypeJSON},
			},
		},
		{
			Type:        core.NodeTypeLog,
			Description: "Logs a value and passes it through",
			Inputs: []core.PropertyDescriptor{
				{ID: PortValue, Name: "Value", DataType: core.DataTypeAny},
			},
			Outputs: []core.PropertyDescriptor{
				{ID: PortOutput, Name: "Output", DataType: core.DataTypeAny},
			},
			Defaults:    map[string]any{PortValue: nil},
			PortAliases: legacyValueAlias,
		},
		{
			Type:        core.NodeTypeRoute,
			Description: "Registers a value under an exact request path",
			Inputs: []core.PropertyDescriptor{
				{ID: PortPath, Name: "Path", DataType: core.DataTypeString},
				{ID: PortValue, Name: "Value", DataType: core.DataTypeAny},
			},
			Outputs: []core.PropertyDescriptor{
				{ID: PortOutput, Name: "Output", DataType: core.DataTypeResponse},
			},
			Defaults:    map[string]any{PortPath: DefaultRoutePath, PortValue: nil},
			PortAliases: legacyValueAlias,
		},
		{
			Type:        core.NodeTypeListen,
			Description: "Starts an HTTP listener serving the route table",
			Inputs: []core.PropertyDescriptor{
				{ID: PortPort, Name: "Port", DataType: core.DataTypeNumber},
				{ID: PortValue, Name: "Value", DataType: core.DataTypeAny},
			},
			Defaults:    map[string]any{PortPort: DefaultListenPort, PortValue: nil},
			PortAliases: legacyValueAlias,
		},
	}
}
