package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/persona/internal/services"
	"github.com/desertthunder/persona/internal/shared"
	"github.com/desertthunder/persona/internal/ui"
	"github.com/urfave/cli/v3"
)

// AuthLogin exchanges an email or username and password for a session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.requireSession()
	if err != nil {
		return err
	}

	identity, err := sess.Login(ctx, cmd.String("user"), cmd.String("password"))
	if err != nil {
		return err
	}

	r.logger.Info("logged in", "user", identity.ID)
	return r.writePlain("%s Logged in as %s\n", ui.Success("✓"), identity.DisplayName())
}

// AuthRegister creates an account and stores the resulting session.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.requireSession()
	if err != nil {
		return err
	}

	identity, err := sess.Register(ctx, cmd.String("name"), cmd.String("email"), cmd.String("password"))
	if err != nil {
		return err
	}

	r.logger.Info("registered", "user", identity.ID)
	return r.writePlain("%s Account created for %s\n", ui.Success("✓"), identity.DisplayName())
}

// AuthLogout clears the local session. Server-side revocation is best effort.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.requireSession()
	if err != nil {
		return err
	}

	if !sess.Authenticated() {
		return r.writePlain("Not logged in\n")
	}

	if err := sess.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("%s Logged out\n", ui.Success("✓"))
}

// AuthStatus reports the session state without contacting the server.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.requireSession()
	if err != nil {
		return err
	}

	r.writePlainHeader("Session")
	r.writePlain("State: %s\n", sess.State())

	identity, ok := sess.Identity()
	if !ok {
		return r.writePlain("%s\n", ui.Help("Run 'persona auth login' to log in"))
	}

	r.writePlain("User: %s <%s>\n", identity.DisplayName(), identity.Email)
	if exp := sess.ExpiresAt(); !exp.IsZero() {
		left := time.Until(exp).Round(time.Second)
		if left > 0 {
			r.writePlain("Credential expires: %s (in %s)\n", exp.Local().Format(time.RFC1123), left)
		} else {
			r.writePlain("Credential expires: %s\n", ui.Warning("expired, renewed on next request"))
		}
	}
	if sess.HasRefreshCredential() {
		r.writePlain("Refresh: available\n")
	} else {
		r.writePlain("Refresh: %s\n", ui.Warning("unavailable, log in again when the credential expires"))
	}
	return nil
}

// AuthWhoami prints the cached identity.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.requireSession()
	if err != nil {
		return err
	}

	identity, ok := sess.Identity()
	if !ok {
		return fmt.Errorf("%w: no cached identity", shared.ErrNotAuthenticated)
	}

	if cmd.Bool("json") {
		return r.writeJSON(identity, true)
	}

	r.writePlain("%s\n", ui.Title(identity.DisplayName()))
	r.writePlain("ID: %s\n", identity.ID)
	r.writePlain("Email: %s\n", identity.Email)
	if identity.Username != "" {
		r.writePlain("Username: %s\n", identity.Username)
	}
	if identity.DNA != nil {
		r.writePlain("Persona: %s\n", identity.DNA.Persona)
		r.writePlain("Tribe: %s\n", identity.DNA.Tribe)
	}
	return nil
}

// AuthOnboard sends the onboarding answers and caches the DNA card on the session.
//
// Without answers it prints the questions and their choices.
func (r *Runner) AuthOnboard(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.requireSession()
	if err != nil {
		return err
	}
	identity, ok := sess.Identity()
	if !ok {
		return fmt.Errorf("%w: log in before onboarding", shared.ErrNotAuthenticated)
	}

	answers := cmd.StringSlice("answer")
	if len(answers) == 0 {
		r.writePlainHeader("Onboarding")
		for i, q := range services.OnboardingQuestions {
			r.writePlain("%d. %s\n   %s\n", i+1, q.Prompt, ui.Help(strings.Join(q.Options, " | ")))
		}
		r.writePlain("%s\n", ui.Help("Answer with --answer once per question, in order"))
		return fmt.Errorf("%w: answers", shared.ErrMissingArgument)
	}

	updated, err := r.dna.Generate(ctx, identity.ID, answers)
	if err != nil {
		return err
	}

	identity = identity.Merge(*updated)
	if err := sess.UpdateIdentity(ctx, identity); err != nil {
		return err
	}

	r.logger.Info("dna generated", "user", identity.ID, "persona", identity.DNA.Persona)
	r.writePlain("%s You are %s\n", ui.Success("✓"), ui.Title(identity.DNA.Persona))
	if identity.DNA.Tribe != "" {
		r.writePlain("Tribe: %s\n", identity.DNA.Tribe)
	}
	if len(identity.DNA.Palette) > 0 {
		r.writePlain("Palette: %s\n", strings.Join(identity.DNA.Palette, " "))
	}
	return nil
}
