// Command codeindexerd drives a Project Controller from stdin/stdout with
// one JSON request and one JSON response per line. It exists for manual
// smoke testing and integration tests; it is not a supported wire protocol.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/codeindexer/corex/internal/debuglog"
	"github.com/codeindexer/corex/internal/project"
	"github.com/codeindexer/corex/internal/types"
)

// request is one line of stdin. Op selects the Project Controller method;
// the remaining fields are used by whichever op needs them.
type request struct {
	Op      string             `json:"op"`
	Path    string             `json:"path,omitempty"`
	Glob    string             `json:"glob,omitempty"`
	Pattern string             `json:"pattern,omitempty"`
	Options types.SearchOptions `json:"options,omitempty"`
}

// response is one line of stdout, always keyed by Op so a driving script
// can correlate it with the request that produced it.
type response struct {
	Op     string      `json:"op"`
	Error  string      `json:"error,omitempty"`
	Result interface{} `json:"result,omitempty"`
}

func main() {
	if os.Getenv("CODEINDEXERD_DEBUG") != "" {
		debuglog.SetEnabled(true)
	}

	ctrl := project.New()
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 64*1024), 1<<20)
	out := json.NewEncoder(os.Stdout)

	for in.Scan() {
		line := in.Bytes()
		if len(line) == 0 {
			continue
		}
		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			out.Encode(response{Error: fmt.Sprintf("malformed request: %v", err)})
			continue
		}
		out.Encode(handle(ctrl, req))
	}
	if err := in.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "codeindexerd: stdin read error: %v\n", err)
		os.Exit(1)
	}
}

func handle(ctrl *project.Controller, req request) response {
	resp := response{Op: req.Op}
	ctx := context.Background()

	switch req.Op {
	case "set_project_path":
		result, err := ctrl.SetPath(ctx, req.Path)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Result = result

	case "refresh_shallow":
		stats, err := ctrl.RefreshShallow(ctx)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Result = stats

	case "build_deep":
		idx, err := ctrl.BuildDeep(ctx)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Result = map[string]int{
			"symbols": len(idx.Symbols),
			"edges":   len(idx.Edges),
			"ambiguous": idx.AmbiguityCount,
			"failures": len(idx.Failures),
		}

	case "find_files":
		files, err := ctrl.FindFiles(req.Glob)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Result = files

	case "file_summary":
		summary, err := ctrl.FileSummary(req.Path)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Result = summary

	case "search_code":
		matches, err := ctrl.SearchCode(ctx, req.Pattern, req.Options)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Result = matches

	case "get_settings_info":
		resp.Result = ctrl.GetSettingsInfo()

	case "clear_settings":
		if err := ctrl.Clear(); err != nil {
			resp.Error = err.Error()
		}

	default:
		resp.Error = fmt.Sprintf("unknown op %q", req.Op)
	}

	return resp
}
