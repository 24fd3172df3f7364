package service

import "bindiff/core"

const (
	msgInvalidID      = "'Id' must be greater than zero."
	msgMissingContent = "Either 'left' or 'right' properties must be provided."
	msgInvalidBase64  = "Invalid base64 string."
	msgInvalidSide    = "Side must be either 'left' or 'right'."
	msgLeftMissing    = "'Left' content is missing."
	msgRightMissing   = "'Right' content is missing."
	msgNotFound       = "No record was found for id %d."
	msgLoadFailed     = "Failed to load record %d."
	msgSaveFailed     = "Failed to save record %d."
)

// validateUpsert checks, in order, the id, that some content is present and
// that every non-blank side is valid base64.
func validateUpsert(data core.Record) error {
	if data.ID <= 0 {
		return core.NewError(core.KindInvalidArgument, msgInvalidID)
	}
	if core.IsBlank(data.LeftContent) && core.IsBlank(data.RightContent) {
		return core.NewError(core.KindInvalidArgument, msgMissingContent)
	}
	if !core.IsBlank(data.LeftContent) {
		if err := validateBase64(data.LeftContent); err != nil {
			return err
		}
	}
	if !core.IsBlank(data.RightContent) {
		if err := validateBase64(data.RightContent); err != nil {
			return err
		}
	}
	return nil
}

func validateBase64(content string) error {
	if _, err := core.DecodeBase64(content); err != nil {
		return core.WrapError(err, core.KindInvalidArgument, msgInvalidBase64)
	}
	return nil
}

func validateComparison(data *core.Record) error {
	if core.IsBlank(data.LeftContent) {
		return core.NewError(core.KindFailedPrecondition, msgLeftMissing)
	}
	if core.IsBlank(data.RightContent) {
		return core.NewError(core.KindFailedPrecondition, msgRightMissing)
	}
	return nil
}
