package mcp

import "fmt"

func errStdioUnsupported(server string) error {
	return fmt.Errorf("mcp: server %q: stdio transport is not supported, this runtime cannot spawn subprocesses", server)
}

func errUnknownTransport(server string, kind TransportKind) error {
	return fmt.Errorf("mcp: server %q: unknown transport %q", server, kind)
}
