package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/exportx"
	"github.com/xBounceIT/WinOTP-sub000/internal/importers"
	"github.com/xBounceIT/WinOTP-sub000/internal/keeper"
	"github.com/xBounceIT/WinOTP-sub000/internal/otpauth"
)

const sealedSuffix = ".age"

func (a *App) printImport(what string, res keeper.ImportResult, invalid, skipped int) {
	fmt.Fprintf(a.out, "Imported %s: %d added, %d duplicates, %d invalid, %d skipped\n",
		what, res.Added, res.Duplicates, res.Invalid+invalid, res.Skipped-res.Duplicates-res.Invalid+skipped)
}

// Import reads an otpauth or otpauth-migration URI, or a file exported by
// 2FAS, WinOTP or the Authenticator browser plugin. Sealed (.age) files ask
// for their passphrase.
func (a *App) Import(ctx context.Context, src string) error {
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "otpauth://") || strings.HasPrefix(lower, "otpauth-migration://") {
		res, err := a.keeper.ImportURI(ctx, src)
		if err != nil {
			return err
		}
		a.printImport("uri", res, 0, 0)
		return nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if exportx.IsSealed(data) {
		pass, err := GetHidden(a.out, "Export passphrase")
		if err != nil {
			return err
		}
		defer common.WipeByteArray(pass)
		data, err = exportx.Open(bytes.NewReader(data), string(pass))
		if err != nil {
			return err
		}
	}

	format, parsed, err := importers.Parse(data)
	if err != nil {
		return err
	}
	res, err := a.keeper.BulkImport(ctx, parsed.Tokens)
	if err != nil {
		return err
	}
	a.printImport(string(format)+" file", res, parsed.FailedValidation, parsed.Skipped)
	return nil
}

// Export writes the token map to dst, sealed with a passphrase when dst
// ends in .age. "export uri" prints a Google Authenticator migration URI
// and its QR code instead.
func (a *App) Export(ctx context.Context, dst string) error {
	if strings.EqualFold(dst, "uri") {
		uri, err := a.keeper.ExportMigrationURI(ctx)
		if err != nil {
			return err
		}
		qr, err := otpauth.RenderQR(uri)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, uri)
		fmt.Fprint(a.out, qr)
		return nil
	}

	tokens, err := a.keeper.Export(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return err
	}

	if strings.HasSuffix(strings.ToLower(dst), sealedSuffix) {
		pass, err := GetNewSecret(a.out, "Export passphrase")
		if err != nil {
			return err
		}
		defer common.WipeByteArray(pass)

		var buf bytes.Buffer
		if err := a.sealer.Seal(&buf, data, string(pass)); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		fmt.Fprintln(a.out, "Warning: the export is not encrypted; use a .age file name to seal it")
	}

	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d tokens to %s\n", len(tokens), dst)
	return nil
}
