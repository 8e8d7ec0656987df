package auth

import "sort"

// Service is the static allow-list of messaging-platform users. An empty
// list lets everyone in.
type Service struct {
	allowed map[int64]struct{}
}

func New(allowedUsers []int64) *Service {
	s := &Service{allowed: make(map[int64]struct{}, len(allowedUsers))}
	for _, id := range allowedUsers {
		s.allowed[id] = struct{}{}
	}
	return s
}

func (s *Service) IsAllowed(userID int64) bool {
	if s == nil || len(s.allowed) == 0 {
		return true
	}
	_, ok := s.allowed[userID]
	return ok
}

func (s *Service) Open() bool {
	return s == nil || len(s.allowed) == 0
}

func (s *Service) List() []int64 {
	if s == nil {
		return nil
	}
	out := make([]int64, 0, len(s.allowed))
	for id := range s.allowed {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
