// Package agents documents the agent-contrib module: a collection of LLM
// agents built on a small shared core.
//
// The building blocks live in subpackages (`llm`, `agent/core`, `workflow`,
// `memory`, `tools`, `observability`, `server/http`); the agents assembled
// from them live beside them (`research`, `sidekick`, `activity`, `crew`,
// `expense`, `langaudit`, `mcpserver`, `gateway`). The agentctl command in
// cmd/agentctl wires everything from one config file:
//
//	import (
//	  "github.com/KamdynS/agent-contrib/llm/openai"
//	  "github.com/KamdynS/agent-contrib/agent/core"
//	  "github.com/KamdynS/agent-contrib/research"
//	)
//
// The root package has no API of its own.
package agents
