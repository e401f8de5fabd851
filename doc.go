// Package copilotsdk provides a Go SDK for the GitHub Copilot CLI.
//
// The SDK spawns (or connects to) a Copilot CLI server process and speaks
// JSON-RPC 2.0 with it over Content-Length framed messages, the same framing
// used by the Language Server Protocol. On top of that connection it manages
// conversation sessions: sending prompts, streaming events, executing
// client-registered tools, and answering permission and user input prompts.
//
// # Quick Start
//
//	client, err := copilotsdk.NewClient()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.ForceStop()
//
//	ctx := context.Background()
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	session, err := client.CreateSession(ctx, &copilotsdk.SessionConfig{
//	    Model: "gpt-5",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	event, err := session.SendAndWait(ctx, &copilotsdk.MessageOptions{
//	    Prompt: "What does this repository do?",
//	}, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(event.Data["text"])
//
// # Custom Tools
//
// Sessions may register tools the agent can call back into:
//
//	weather := copilotsdk.DefineTool("get_weather", "Current weather for a city",
//	    &jsonschema.Schema{
//	        Type: "object",
//	        Properties: map[string]*jsonschema.Schema{
//	            "city": {Type: "string"},
//	        },
//	        Required: []string{"city"},
//	    },
//	    func(ctx context.Context, args json.RawMessage, inv *copilotsdk.ToolInvocation) (any, error) {
//	        var input struct {
//	            City string `json:"city"`
//	        }
//	        if err := json.Unmarshal(args, &input); err != nil {
//	            return nil, err
//	        }
//	        return "Sunny in " + input.City, nil
//	    },
//	)
//
//	session, err := client.CreateSession(ctx, &copilotsdk.SessionConfig{
//	    Tools: []*copilotsdk.Tool{weather},
//	})
//
// # Connecting to an External Server
//
// Instead of spawning the CLI, the SDK can dial a server that is already
// running:
//
//	client, err := copilotsdk.NewClient(
//	    copilotsdk.WithCLIURL("localhost:8080"),
//	)
//
// # Error Handling
//
// The SDK returns typed errors for the main failure scenarios:
//
//	if err := client.Start(ctx); err != nil {
//	    if nf, ok := errors.AsType[*copilotsdk.CLINotFoundError](err); ok {
//	        log.Fatalf("Copilot CLI not installed, searched: %v", nf.SearchedPaths)
//	    }
//	    if pv, ok := errors.AsType[*copilotsdk.ProtocolVersionError](err); ok {
//	        log.Fatalf("CLI too old or too new: %v", pv)
//	    }
//	    log.Fatal(err)
//	}
//
// # Requirements
//
// The SDK requires the Copilot CLI to be installed and reachable on PATH,
// unless an explicit path (WithCLIPath or the COPILOT_CLI_PATH environment
// variable) or an external server URL is provided.
package copilotsdk
