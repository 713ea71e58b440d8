package ebay

import "fmt"

// UploadError is a failure of the media upload stage.
type UploadError struct {
	Status int
	Body   string
	Err    error
}

func (e *UploadError) Error() string {
	return stageErrorString("media upload failed", e.Status, e.Body, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// InventoryError is a failure of the inventory item stage.
type InventoryError struct {
	Status int
	Body   string
	Err    error
}

func (e *InventoryError) Error() string {
	return stageErrorString("inventory item creation failed", e.Status, e.Body, e.Err)
}

func (e *InventoryError) Unwrap() error { return e.Err }

// OfferError is a failure of the offer stage.
type OfferError struct {
	Status int
	Body   string
	Err    error
}

func (e *OfferError) Error() string {
	return stageErrorString("offer creation failed", e.Status, e.Body, e.Err)
}

func (e *OfferError) Unwrap() error { return e.Err }

func stageErrorString(op string, status int, body string, err error) string {
	if err != nil {
		return fmt.Sprintf("%s: %v", op, err)
	}
	if body != "" {
		return fmt.Sprintf("%s: status %d: %s", op, status, body)
	}
	return fmt.Sprintf("%s: status %d", op, status)
}
