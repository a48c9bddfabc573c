package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/yllada/vpn-connector/common"
)

// passwordFlags are shared by the commands that may dial.
func passwordFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "password",
			Usage:   "Password (default: keyring, then prompt)",
			EnvVars: []string{"VPNC_PASSWORD"},
		},
		&cli.BoolFlag{
			Name:  "save-password",
			Usage: "Store the password in the keyring",
		},
	}
}

// promptPassword reads a password without echo. Tests replace it.
var promptPassword = func(w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var errNoTerminal = errors.New("stdin is not a terminal")

// resolvePassword finds the password for the configured entry: flag or
// VPNC_PASSWORD, then the keyring, then an interactive prompt. The second
// result reports whether the password should be stored afterwards.
func resolvePassword(c *cli.Context, rt *Runtime) (string, bool, error) {
	profile, err := rt.Profile("")
	if err != nil {
		return "", false, err
	}
	name := profile.Name()
	save := c.Bool("save-password") || rt.Config.Connection.SavePassword

	if pw := c.String("password"); pw != "" {
		return pw, save, nil
	}

	pw, err := rt.Vault.Get(name)
	if err == nil {
		common.LogDebug("Using stored password for %s", name)
		return pw, false, nil
	}
	if !errors.Is(err, common.ErrCredentialsNotFound) {
		common.LogWarn("Keyring lookup for %s failed: %v", name, err)
	}

	user := profile.Username()
	if user == "" {
		user = "user"
	}
	pw, err = promptPassword(c.App.ErrWriter, fmt.Sprintf("Password for %s@%s: ", user, name))
	if err != nil {
		if errors.Is(err, errNoTerminal) {
			return "", false, fmt.Errorf("%w for %s: use --password, VPNC_PASSWORD or --save-password once",
				common.ErrCredentialsNotFound, name)
		}
		return "", false, err
	}
	return pw, save, nil
}

// storePassword saves pw for the entry and reports failures as warnings.
func storePassword(c *cli.Context, rt *Runtime, name, pw string) {
	if err := rt.Vault.Store(name, pw); err != nil {
		common.LogWarn("Could not save password for %s: %v", name, err)
		fmt.Fprintf(c.App.ErrWriter, "Warning: password not saved: %v\n", err)
		return
	}
	common.LogInfo("Password for %s saved", name)
}
