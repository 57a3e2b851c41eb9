package projector

import "encoding/json"

// jsonUnmarshalBestEffort unmarshals raw into out, tolerating a nil/empty
// payload — used when re-reading an existing account document that may not
// carry every field yet.
func jsonUnmarshalBestEffort(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
