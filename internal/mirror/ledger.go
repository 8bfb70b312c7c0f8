package mirror

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// echoSet holds base names whose next notification on one side is expected to
// be caused by the engine itself. It is only touched under the engine lock.
//
// Entries have no expiry: an echo that never arrives (lost, or coalesced into
// a batch with an unrelated change) leaves its name behind, and that name's
// next genuine event on this side is swallowed.
type echoSet struct {
	names mapset.Set[string]
}

func newEchoSet() *echoSet {
	return &echoSet{names: mapset.NewThreadUnsafeSet[string]()}
}

// expect records name and reports whether it was newly added.
func (s *echoSet) expect(name string) bool {
	return s.names.Add(name)
}

// consume reports whether name was expected, removing it if so.
func (s *echoSet) consume(name string) bool {
	if !s.names.Contains(name) {
		return false
	}
	s.names.Remove(name)
	return true
}

func (s *echoSet) withdraw(name string) {
	s.names.Remove(name)
}

func (s *echoSet) pending() []string {
	names := s.names.ToSlice()
	slices.Sort(names)
	return names
}
