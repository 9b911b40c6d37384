package models

import "time"

// Submission is a locally owned response to a form. It is created on first
// entry into a form, mutated on every navigation or answer edit, and leaves
// the pending queue only after the sync reconciler confirms server
// acceptance. The JSON field names match the locally persisted blob format.
type Submission struct {
	LocalID          string         `json:"submissionId"`
	FormID           int            `json:"FormID"`
	Answers          map[int]Answer `json:"answers"`
	TraversalHistory []int          `json:"prevquestions"`
	LastIndex        int            `json:"lastQuestionAnswered"`
	IsComplete       bool           `json:"isComplete"`
	AudioURI         string         `json:"audioRecording,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
}

// Clone returns a deep copy so a persisted snapshot cannot alias the live
// answer map or history of an in-progress session.
func (s Submission) Clone() Submission {
	out := s
	if s.Answers != nil {
		out.Answers = make(map[int]Answer, len(s.Answers))
		for idx, a := range s.Answers {
			if a.Multi {
				a.Selections = append([]string(nil), a.Selections...)
			}
			out.Answers[idx] = a
		}
	}
	if s.TraversalHistory != nil {
		out.TraversalHistory = append([]int(nil), s.TraversalHistory...)
	}
	return out
}
