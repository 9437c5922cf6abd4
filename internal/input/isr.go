package input

// InterruptClearer clears the pending interrupt flag of an input pin.
type InterruptClearer interface {
	ClearInterrupt()
}

// Handler returns the button interrupt handler: count the press, clear the
// pin's pending flag, raise wake and notify. It never blocks, allocates or
// logs.
func (e *Events) Handler(pin InterruptClearer) func() {
	return func() {
		e.Increment()
		pin.ClearInterrupt()
		e.signal()
	}
}
