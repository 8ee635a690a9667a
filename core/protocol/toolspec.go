package protocol

import (
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// RoutingToolName is the single tool the model may invoke: it routes the
// user's request to one of the configured target agents.
const RoutingToolName = "routeToAgent"

// RouteTarget describes one routable agent. Targets missing a name or a
// description are silently excluded from the tool specification.
type RouteTarget struct {
	Name        string
	Description string
}

type ToolUseConfiguration struct {
	Tools []Tool `json:"tools"`
}

type Tool struct {
	ToolSpec ToolSpec `json:"toolSpec"`
}

type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema ToolInputSchema `json:"inputSchema"`
}

// ToolInputSchema carries the input schema as a JSON string, the form the
// gateway expects.
type ToolInputSchema struct {
	JSON string `json:"json"`
}

// routeToAgentInput is reflected into the routing tool's input schema. Both
// properties are required strings; the agentName enum is injected at build
// time from the configured targets.
type routeToAgentInput struct {
	AgentName string `json:"agentName" jsonschema:"description=Name of the agent to handle the request"`
	Query     string `json:"query" jsonschema:"description=The user's request rephrased as a standalone query for the target agent"`
}

// NewToolUseConfiguration builds the routing tool specification from the
// caller-supplied targets. It returns nil with no error when no usable
// target remains, meaning the prompt declares no tools at all.
func NewToolUseConfiguration(targets []RouteTarget) (*ToolUseConfiguration, error) {
	usable := make([]RouteTarget, 0, len(targets))
	for _, target := range targets {
		if target.Name == "" || target.Description == "" {
			continue
		}
		usable = append(usable, target)
	}
	if len(usable) == 0 {
		return nil, nil
	}

	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(routeToAgentInput{})

	names := make([]any, 0, len(usable))
	var catalog strings.Builder
	for i, target := range usable {
		names = append(names, target.Name)
		if i > 0 {
			catalog.WriteString(" ")
		}
		fmt.Fprintf(&catalog, "%s: %s.", target.Name, strings.TrimSuffix(target.Description, "."))
	}

	if property, ok := schema.Properties.Get("agentName"); ok {
		property.Enum = names
	}

	raw, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool input schema: %w", err)
	}

	return &ToolUseConfiguration{Tools: []Tool{{ToolSpec: ToolSpec{
		Name:        RoutingToolName,
		Description: "Route the user's request to the agent best suited to answer it. Available agents: " + catalog.String(),
		InputSchema: ToolInputSchema{JSON: string(raw)},
	}}}}, nil
}
