package extractor

// Reporter receives progress and diagnostics from Unpack. Error is called
// once with the message of the failure that aborts the extraction.
type Reporter interface {
	Message(text string)
	Error(text string)
	Status(current, total uint32)
	NewDirectory(path string)
	NewFile(path string)
}

// NopReporter discards everything
type NopReporter struct{}

func (NopReporter) Message(string)        {}
func (NopReporter) Error(string)          {}
func (NopReporter) Status(uint32, uint32) {}
func (NopReporter) NewDirectory(string)   {}
func (NopReporter) NewFile(string)        {}
