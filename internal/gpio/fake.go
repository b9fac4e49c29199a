package gpio

// FakeActuator is a test double recording every drive request.
type FakeActuator struct {
	// On is the last commanded state.
	On bool

	// Sets records all commanded states in order.
	Sets []bool

	// Err, if set, is returned by Set.
	Err error
}

// Set records the request.
func (f *FakeActuator) Set(on bool) error {
	if f.Err != nil {
		return f.Err
	}
	f.On = on
	f.Sets = append(f.Sets, on)
	return nil
}
