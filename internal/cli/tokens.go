package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/keeper"
	"github.com/xBounceIT/WinOTP-sub000/internal/models"
	"github.com/xBounceIT/WinOTP-sub000/internal/otpauth"
)

const qrPNGSize = 256

func (a *App) printViews(views []keeper.TokenView, next bool) {
	if len(views) == 0 {
		fmt.Fprintln(a.out, "No tokens")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tISSUER\tNAME\tCODE\tEXPIRES")
	for _, v := range views {
		code := v.Code
		if next {
			code = v.NextCode
		}
		if v.Err != nil {
			code = "error"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%ds\n", v.ID, v.Issuer, v.Name, code, v.SecondsRemaining)
	}
	tw.Flush()
}

func (a *App) List(ctx context.Context) error {
	views, err := a.keeper.ListTokens(ctx)
	if err != nil {
		return err
	}
	a.printViews(views, false)
	return nil
}

// Next lists the codes of the following 30-second window.
func (a *App) Next(ctx context.Context) error {
	views, err := a.keeper.ListTokens(ctx)
	if err != nil {
		return err
	}
	a.printViews(views, true)
	return nil
}

func (a *App) Search(ctx context.Context, query string) error {
	views, err := a.keeper.SearchTokens(ctx, query)
	if err != nil {
		return err
	}
	a.printViews(views, false)
	return nil
}

func (a *App) Sort(ctx context.Context, order string) error {
	switch strings.ToLower(order) {
	case "asc":
		a.keeper.SetSortAscending(true)
	case "desc":
		a.keeper.SetSortAscending(false)
	default:
		return fmt.Errorf("unknown sort order %q", order)
	}
	return a.List(ctx)
}

func (a *App) Add(ctx context.Context) error {
	issuer, err := GetSimpleText(a.reader, "Issuer", a.out)
	if err != nil {
		return err
	}
	name, err := GetSimpleText(a.reader, "Account name", a.out)
	if err != nil {
		return err
	}
	secret, err := GetHidden(a.out, "Secret (Base32)")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	id, err := a.keeper.AddToken(ctx, models.Token{Issuer: issuer, Name: name, Secret: string(secret)})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Added", id)
	return nil
}

// Edit prompts for each field with the current value; an empty answer keeps
// it.
func (a *App) Edit(ctx context.Context, id string) error {
	cur, err := a.keeper.GetToken(ctx, id)
	if err != nil {
		return err
	}

	issuer, err := GetSimpleText(a.reader, fmt.Sprintf("Issuer [%s]", cur.Issuer), a.out)
	if err != nil {
		return err
	}
	name, err := GetSimpleText(a.reader, fmt.Sprintf("Account name [%s]", cur.Name), a.out)
	if err != nil {
		return err
	}
	secret, err := GetHidden(a.out, "Secret (empty keeps the current one)")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	upd := cur
	if issuer != "" {
		upd.Issuer = issuer
	}
	if name != "" {
		upd.Name = name
	}
	if len(secret) > 0 {
		upd.Secret = string(secret)
	}

	if err := a.keeper.UpdateToken(ctx, id, upd); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Updated", id)
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	t, err := a.keeper.GetToken(ctx, id)
	if err != nil {
		return err
	}
	if !Confirm(a.reader, fmt.Sprintf("Delete %s (%s)?", t.Issuer, t.Name), a.out) {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	if err := a.keeper.DeleteToken(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted", id)
	return nil
}

// QR prints the token's otpauth URI as a terminal QR code, or writes a PNG
// when pngPath is set.
func (a *App) QR(ctx context.Context, id, pngPath string) error {
	t, err := a.keeper.GetToken(ctx, id)
	if err != nil {
		return err
	}
	uri, err := otpauth.Build(t)
	if err != nil {
		return err
	}

	if pngPath != "" {
		f, err := os.OpenFile(pngPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return err
		}
		if err := otpauth.WritePNG(f, uri, qrPNGSize); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "QR code written to", pngPath)
		return nil
	}

	qr, err := otpauth.RenderQR(uri)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, qr)
	return nil
}
