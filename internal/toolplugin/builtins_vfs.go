package toolplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// VFSRead exposes VFS.Read as a tool.
type VFSRead struct{}

func (VFSRead) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "vfs_read",
		Description: "Read the current content of a file in the virtual file system.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "path", Type: orcmodels.ParamString, Description: "File path to read.", Required: true},
		},
	}
}

func (t VFSRead) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	path, ok := stringArg(args, "path")
	if !ok {
		return "Error: path is required", nil
	}
	content, ok := tc.VFS.Read(path)
	if !ok {
		return fmt.Sprintf("Error: no such path: %s", path), nil
	}
	return content, nil
}

// VFSWrite exposes VFS.Write as a tool.
type VFSWrite struct{}

func (VFSWrite) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "vfs_write",
		Description: "Write content to a file in the virtual file system, creating or overwriting it.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "path", Type: orcmodels.ParamString, Description: "File path to write.", Required: true},
			{Name: "content", Type: orcmodels.ParamString, Description: "New file content.", Required: true},
		},
	}
}

func (t VFSWrite) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	path, ok := stringArg(args, "path")
	if !ok {
		return "Error: path is required", nil
	}
	content, _ := stringArg(args, "content")
	if err := tc.VFS.Write(path, content, tc.CurrentAgentID); err != nil {
		return "", fmt.Errorf("toolplugin: vfs_write: %w", err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}

// VFSList exposes VFS.List as a tool.
type VFSList struct{}

func (VFSList) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "vfs_list",
		Description: "List every file path under a prefix.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "prefix", Type: orcmodels.ParamString, Description: "Path prefix to list, e.g. agents/.", Required: false},
		},
	}
}

func (t VFSList) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	prefix, _ := stringArg(args, "prefix")
	paths := tc.VFS.List(prefix)
	if len(paths) == 0 {
		return "(no matching paths)", nil
	}
	return strings.Join(paths, "\n"), nil
}

// VFSDelete exposes VFS.Delete as a tool.
type VFSDelete struct{}

func (VFSDelete) Descriptor() orcmodels.ToolDescriptor {
	return orcmodels.ToolDescriptor{
		Name:        "vfs_delete",
		Description: "Delete a file from the virtual file system.",
		Parameters: []orcmodels.ToolParameter{
			{Name: "path", Type: orcmodels.ParamString, Description: "File path to delete.", Required: true},
		},
	}
}

func (t VFSDelete) Execute(_ context.Context, tc *ToolContext, args map[string]orcmodels.Value) (string, error) {
	path, ok := stringArg(args, "path")
	if !ok {
		return "Error: path is required", nil
	}
	if err := tc.VFS.Delete(path); err != nil {
		return "", fmt.Errorf("toolplugin: vfs_delete: %w", err)
	}
	return fmt.Sprintf("deleted %s", path), nil
}

func stringArg(args map[string]orcmodels.Value, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	return v.AsString()
}
