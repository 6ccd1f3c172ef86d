package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var trailingNumber = regexp.MustCompile(`^(.*?)(\d+)$`)

// idAllocator hands out ids that are not yet taken. An id ending in digits
// continues its numbered sequence at the same width; any other id gets a
// "-2", "-3", ... suffix.
type idAllocator struct {
	taken map[string]bool
	next  map[string]int
}

func newIDAllocator(existing []string) *idAllocator {
	a := &idAllocator{taken: make(map[string]bool, len(existing)), next: map[string]int{}}
	for _, id := range existing {
		a.reserve(id)
	}
	return a
}

func (a *idAllocator) reserve(id string) {
	a.taken[id] = true
	if m := trailingNumber.FindStringSubmatch(id); m != nil {
		key := m[1] + "|" + strconv.Itoa(len(m[2]))
		if n, err := strconv.Atoi(m[2]); err == nil && n >= a.next[key] {
			a.next[key] = n + 1
		}
	}
}

// claim returns id when it is free, otherwise the next free id in its
// sequence. The returned id is reserved.
func (a *idAllocator) claim(id string) string {
	if !a.taken[id] {
		a.reserve(id)
		return id
	}
	candidate := id
	if m := trailingNumber.FindStringSubmatch(id); m != nil {
		width := len(m[2])
		key := m[1] + "|" + strconv.Itoa(width)
		for n := a.next[key]; ; n++ {
			candidate = fmt.Sprintf("%s%0*d", m[1], width, n)
			if !a.taken[candidate] {
				break
			}
		}
	} else {
		for n := 2; ; n++ {
			candidate = fmt.Sprintf("%s-%d", id, n)
			if !a.taken[candidate] {
				break
			}
		}
	}
	a.reserve(candidate)
	return candidate
}

// RekeyRun renames the ids of a freshly generated run so they do not clash
// with ids already in the workspace or with each other. Requirement ids
// continue their sequence (REQ-002 after REQ-001); linked test cases follow
// the rename in both RequirementID and any embedded copy of the old id in
// their own ID. The inputs are not modified.
func RekeyRun(existingReqIDs, existingCaseIDs []string, reqs []Requirement, cases []TestCase) ([]Requirement, []TestCase) {
	reqIDs := newIDAllocator(existingReqIDs)
	renamed := make(map[string]string)
	first := make(map[string]bool, len(reqs))
	outReqs := make([]Requirement, len(reqs))
	for i, r := range reqs {
		id := reqIDs.claim(r.ID)
		if !first[r.ID] {
			first[r.ID] = true
			if id != r.ID {
				renamed[r.ID] = id
			}
		}
		r.ID = id
		outReqs[i] = r
	}

	caseIDs := newIDAllocator(existingCaseIDs)
	outCases := make([]TestCase, len(cases))
	for i, tc := range cases {
		if newID, ok := renamed[tc.RequirementID]; ok {
			tc.ID = replaceToken(tc.ID, tc.RequirementID, newID)
			tc.RequirementID = newID
		}
		tc.ID = caseIDs.claim(tc.ID)
		outCases[i] = tc
	}
	return outReqs, outCases
}

// replaceToken replaces the first occurrence of old in s that is not
// directly followed by a digit, so REQ-1 does not match inside REQ-10.
func replaceToken(s, old, replacement string) string {
	if old == "" {
		return s
	}
	for start := 0; ; {
		i := strings.Index(s[start:], old)
		if i < 0 {
			return s
		}
		i += start
		end := i + len(old)
		if end == len(s) || s[end] < '0' || s[end] > '9' {
			return s[:i] + replacement + s[end:]
		}
		start = i + 1
	}
}
