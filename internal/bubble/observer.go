package bubble

// Observer receives progress events from engines. Implementations must be
// safe for use from the goroutine that calls OCR.
type Observer interface {
	// ChunkProcessed is called after each chunk of a chunked engine with the
	// number of lines kept from that chunk.
	ChunkProcessed(engine string, index, lines int)
	// BoxesDetected is called once per call with the number of boxes the
	// detection stage retained.
	BoxesDetected(engine string, n int)
	// RegionFailed is called when one region is skipped because of an error.
	RegionFailed(engine string, index int, err error)
	// BubblesEmitted is called once per successful call.
	BubblesEmitted(engine string, n int)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) ChunkProcessed(string, int, int) {}
func (NopObserver) BoxesDetected(string, int)       {}
func (NopObserver) RegionFailed(string, int, error) {}
func (NopObserver) BubblesEmitted(string, int)      {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) ChunkProcessed(engine string, index, lines int) {
	for _, ob := range o {
		ob.ChunkProcessed(engine, index, lines)
	}
}

func (o Observers) BoxesDetected(engine string, n int) {
	for _, ob := range o {
		ob.BoxesDetected(engine, n)
	}
}

func (o Observers) RegionFailed(engine string, index int, err error) {
	for _, ob := range o {
		ob.RegionFailed(engine, index, err)
	}
}

func (o Observers) BubblesEmitted(engine string, n int) {
	for _, ob := range o {
		ob.BubblesEmitted(engine, n)
	}
}
