package model

// ObjectRef identifies a stored object by bucket and key.
// It is the trigger input of the pipeline: the newly created original.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Metadata holds the capture metadata extracted from an original.
// A nil field means the value was absent or could not be parsed.
type Metadata struct {
	TakenAt *string  `json:"taken_at"` // ISO-8601 "YYYY-MM-DDTHH:MM:SSZ"
	GPSLat  *float64 `json:"gps_lat"`
	GPSLng  *float64 `json:"gps_lng"`
}

// Derivative is a resized, re-encoded copy of an original.
type Derivative struct {
	Name   string `json:"name"` // "web" or "thumb"
	Bytes  []byte `json:"-"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Key    string `json:"key,omitempty"`
}

// MetadataUpdate is the payload sent to the main application once
// both derivatives are stored.
type MetadataUpdate struct {
	S3KeyOriginal string   `json:"s3_key_original"`
	S3KeyWeb      string   `json:"s3_key_web"`
	S3KeyThumb    string   `json:"s3_key_thumb"`
	TakenAt       *string  `json:"taken_at"`
	GPSLat        *float64 `json:"gps_lat"`
	GPSLng        *float64 `json:"gps_lng"`
	Width         int      `json:"width"`  // web derivative width
	Height        int      `json:"height"` // web derivative height
}

// Photo is the application-side record updated by the metadata callback.
type Photo struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"project_id"`
	Src       string  `json:"src"`
	S3Key     string  `json:"s3_key"`
	GPS       *string `json:"gps"`
	Date      *string `json:"date"`
}
