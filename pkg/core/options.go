package core

// RecordOption is a function type for configuring Record operations.
//
// Options follow the functional options pattern so callers only specify
// the fields they care about.
type RecordOption func(*RecordOptions)

// RecordOptions contains configuration options for Record operations.
type RecordOptions struct {
	// Metadata contains auxiliary structured information.
	Metadata map[string]interface{}

	// Tags is the ordered tag list for the experience.
	Tags []string

	// Importance is the importance weight (default 1.0).
	Importance float64

	// Context contains auxiliary situational information.
	Context map[string]interface{}
}

// WithMetadata sets the metadata for a Record operation.
func WithMetadata(metadata map[string]interface{}) RecordOption {
	return func(opts *RecordOptions) {
		opts.Metadata = metadata
	}
}

// WithTags sets the tags for a Record operation.
func WithTags(tags ...string) RecordOption {
	return func(opts *RecordOptions) {
		opts.Tags = tags
	}
}

// WithImportance sets the importance weight for a Record operation.
func WithImportance(importance float64) RecordOption {
	return func(opts *RecordOptions) {
		opts.Importance = importance
	}
}

// WithContext sets the context payload for a Record operation.
func WithContext(context map[string]interface{}) RecordOption {
	return func(opts *RecordOptions) {
		opts.Context = context
	}
}

// applyRecordOptions applies option functions over the defaults.
func applyRecordOptions(opts []RecordOption) *RecordOptions {
	options := &RecordOptions{
		Importance: 1.0,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
