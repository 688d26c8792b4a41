// Package toolexecutor registers tools and dispatches calls to them.
//
// Invariants:
// - A Registry is built once and never changes; tool names are unique and
//   listed in declaration order.
// - Unknown names and missing required arguments fail before any handler runs.
// - Every call yields exactly one Envelope, including handler panics and
//   deadline expiry.
//
// Usage:
//
//	reg := toolexecutor.MustRegistry(toolexecutor.ToolDefinition{
//		Name:        "echo",
//		Description: "Echo input",
//		Parameters:  []toolexecutor.ToolParameter{{Name: "text", Type: "string", Description: "text", Required: true}},
//		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
//			return map[string]string{"text": args.String("text")}, nil
//		}),
//	})
//	env := toolexecutor.New(reg).Execute(ctx, "echo", map[string]interface{}{"text": "hi"})
package toolexecutor
