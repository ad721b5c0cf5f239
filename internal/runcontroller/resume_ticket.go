package runcontroller

import (
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/orchkernel/internal/vfs"
	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

func writeResumeTicket(store vfs.VFS, path string, resume orcmodels.WorkflowResume) error {
	raw, err := json.Marshal(resume)
	if err != nil {
		return fmt.Errorf("runcontroller: marshal resume ticket: %w", err)
	}
	return store.Write(path, string(raw), "run-controller")
}

// ReadResumeTicket loads a previously-persisted resume ticket for
// workflowPath, as written by a failed RunWorkflow/ResumeWorkflow call.
func ReadResumeTicket(store vfs.VFS, workflowPath string) (orcmodels.WorkflowResume, bool, error) {
	raw, ok := store.Read(resumeTicketPath(workflowPath))
	if !ok {
		return orcmodels.WorkflowResume{}, false, nil
	}
	var resume orcmodels.WorkflowResume
	if err := json.Unmarshal([]byte(raw), &resume); err != nil {
		return orcmodels.WorkflowResume{}, false, fmt.Errorf("runcontroller: corrupt resume ticket for %s: %w", workflowPath, err)
	}
	return resume, true, nil
}
