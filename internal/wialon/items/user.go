package items

import (
	"context"

	"fleet-provisioning/internal/wialon"
)

const userFlags = commonFlags

// User is a platform user: a customer's super-user or end-user.
type User struct {
	base
}

// CreateUser creates a user owned by creatorID.
func CreateUser(ctx context.Context, s *wialon.Session, creatorID int64, name, password string) (*User, error) {
	if err := wialon.ValidateName(name); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, &wialon.ValidationError{Field: "password", Reason: "must not be empty"}
	}
	if err := validateID(creatorID); err != nil {
		return nil, err
	}
	var res wialon.ItemResult
	err := s.Call(ctx, wialon.SvcCreateUser, wialon.CreateUserParams{
		CreatorID: creatorID,
		Name:      name,
		Password:  password,
		DataFlags: userFlags,
	}, &res)
	if err != nil {
		return nil, err
	}
	u := &User{base: newBase(wialon.ItemTypeUser, 0, userFlags)}
	if err := u.adopt(wialon.SvcCreateUser, res); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser loads an existing user.
func GetUser(ctx context.Context, s *wialon.Session, id int64) (*User, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	u := &User{base: newBase(wialon.ItemTypeUser, id, userFlags)}
	if err := u.Refresh(ctx, s); err != nil {
		return nil, err
	}
	return u, nil
}

// SetSettingsFlags updates the user settings bits selected by mask (see wialon.SettingsUser*).
func (u *User) SetSettingsFlags(ctx context.Context, s *wialon.Session, flags, mask int64) error {
	return s.Call(ctx, wialon.SvcUpdateUserFlags, wialon.UpdateUserFlagsParams{UserID: u.id, Flags: flags, FlagsMask: mask}, nil)
}

// UpdatePassword changes the user's password.
func (u *User) UpdatePassword(ctx context.Context, s *wialon.Session, oldPassword, newPassword string) error {
	if newPassword == "" {
		return &wialon.ValidationError{Field: "password", Reason: "must not be empty"}
	}
	return s.Call(ctx, wialon.SvcUpdatePassword, wialon.UpdatePasswordParams{
		UserID:      u.id,
		OldPassword: oldPassword,
		NewPassword: newPassword,
	}, nil)
}

// AssignPhone stores the user's phone number in the "phone" custom property.
func (u *User) AssignPhone(ctx context.Context, s *wialon.Session, phone string) error {
	return u.SetCustomProperty(ctx, s, "phone", phone)
}

// AssignEmail stores the user's email in the "email" custom property.
func (u *User) AssignEmail(ctx context.Context, s *wialon.Session, email string) error {
	return u.SetCustomProperty(ctx, s, "email", email)
}
