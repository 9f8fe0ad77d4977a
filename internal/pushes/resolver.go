package pushes

import "context"

// Directory lists every known recipient.
type Directory interface {
	AllIDs(ctx context.Context) ([]int64, error)
}

type Resolver struct {
	Directory Directory
}

// Resolve expands the job target into concrete recipient ids.
// send_to_all reads the directory now; explicit targets are the frozen list.
func (r *Resolver) Resolve(ctx context.Context, job *PushJob) ([]int64, error) {
	if job.SendToAll {
		ids, err := r.Directory.AllIDs(ctx)
		if err != nil {
			return nil, err
		}
		return dedupe(ids), nil
	}
	return dedupe(job.TargetUserIDs), nil
}

func dedupe(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
