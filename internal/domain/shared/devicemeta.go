// Package shared holds small value objects used by more than one aggregate.
package shared

// DeviceMetadata describes the client device behind a binding.
// All fields are optional and client-supplied.
type DeviceMetadata struct {
	Platform   string `json:"platform,omitempty"`
	Model      string `json:"model,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
}

// IsZero reports whether no metadata was supplied.
func (m DeviceMetadata) IsZero() bool {
	return m.Platform == "" && m.Model == "" && m.AppVersion == ""
}
