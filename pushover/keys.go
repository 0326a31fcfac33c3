// Copyright (c) 2023 BVK Chaitanya

package pushover

// Keys holds the Pushover API credentials from the secrets file.
type Keys struct {
	ApplicationKey string `json:"application_key"`
	UserKey        string `json:"user_key"`
}
