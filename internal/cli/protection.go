package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
)

func (a *App) SetPIN(ctx context.Context) error {
	pin, err := GetNewSecret(a.out, "New PIN")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pin)

	if err := a.keeper.SetPIN(ctx, string(pin)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "PIN set")
	return nil
}

func (a *App) SetPassword(ctx context.Context) error {
	pw, err := GetNewSecret(a.out, "New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	if err := a.keeper.SetPassword(ctx, string(pw)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password set")
	return nil
}

func (a *App) Disable(ctx context.Context) error {
	if !a.keeper.Protected() {
		fmt.Fprintln(a.out, "Protection is already off")
		return nil
	}
	cred, err := GetHidden(a.out, "Current "+string(a.keeper.AuthType()))
	if err != nil {
		return err
	}
	defer common.WipeByteArray(cred)

	if err := a.keeper.DisableProtection(ctx, string(cred)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Protection disabled")
	return nil
}

func (a *App) Timeout(ctx context.Context, minutes string) error {
	n, err := strconv.Atoi(minutes)
	if err != nil {
		return fmt.Errorf("timeout must be a number of minutes: %w", err)
	}
	if err := a.keeper.SetTimeout(ctx, n); err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(a.out, "Session timeout disabled")
	} else {
		fmt.Fprintf(a.out, "Session timeout set to %d minutes\n", n)
	}
	return nil
}

func (a *App) Lock(ctx context.Context) error {
	if !a.keeper.Protected() {
		fmt.Fprintln(a.out, "No PIN or password is set; the store stays open")
		return nil
	}
	a.keeper.Logout(ctx)
	fmt.Fprintln(a.out, "Locked")
	return nil
}

func (a *App) Unlock(ctx context.Context) error {
	if !a.keeper.Protected() {
		fmt.Fprintln(a.out, "The store is not protected")
		return nil
	}
	cred, err := GetHidden(a.out, "Enter "+string(a.keeper.AuthType()))
	if err != nil {
		return err
	}
	defer common.WipeByteArray(cred)

	if err := a.keeper.Unlock(ctx, string(cred)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Unlocked")
	return nil
}
