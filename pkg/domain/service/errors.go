package service

import (
	"github.com/pkg/errors"

	"woodstore/pkg/domain/model"
)

func wrapKind(kind error, msg string) error {
	return errors.WithMessage(kind, msg)
}

func requiredField(field string) error {
	return errors.Wrapf(model.ErrValidation, "%s is required", field)
}

func requireIdentity(identity *model.Identity) error {
	if identity == nil {
		return model.ErrAuthRequired
	}
	return nil
}

func requireAdmin(identity *model.Identity) error {
	if err := requireIdentity(identity); err != nil {
		return err
	}
	if !identity.IsAdmin {
		return model.ErrAccessDenied
	}
	return nil
}
