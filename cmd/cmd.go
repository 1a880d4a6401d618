// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"
)

// setupCommand handles configuration and local database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the local database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Log in, register and manage the local session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with an email or username",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u", "email"},
						Usage:    "Email address or username",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Password",
						Sources: cli.EnvVars("PERSONA_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account and log in",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Display name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Email address",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Password",
						Sources: cli.EnvVars("PERSONA_PASSWORD"),
					},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Revoke the session and clear local credentials",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the session state and credential expiry",
				Action: r.AuthStatus,
			},
			{
				Name:  "whoami",
				Usage: "Print the cached identity",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthWhoami,
			},
			{
				Name:  "onboard",
				Usage: "Answer the taste questions and generate your DNA card",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "answer",
						Aliases: []string{"a"},
						Usage:   "Answer to the next question, in order (repeat once per question)",
					},
				},
				Action: r.AuthOnboard,
			},
		},
	}
}

// personaCommand handles generation jobs
func personaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "persona",
		Aliases: []string{"p"},
		Usage:   "Create and manage personas",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Submit a generation job",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "prompt"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "image",
						Usage: "Source image URL",
					},
					&cli.StringFlag{
						Name:  "from-url",
						Usage: "Build the prompt from a product page",
					},
					&cli.BoolFlag{
						Name:    "wait",
						Aliases: []string{"w"},
						Usage:   "Follow the job until it completes or fails",
					},
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the finished video in the browser (implies --wait)",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Stop waiting after this long (0 waits forever)",
					},
				},
				Action: r.PersonaCreate,
			},
			{
				Name:  "status",
				Usage: "Show the status of a job",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "wait",
						Aliases: []string{"w"},
						Usage:   "Follow the job until it completes or fails",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PersonaStatus,
			},
			{
				Name:    "list",
				Aliases: []string{"ls", "gallery"},
				Usage:   "List your personas",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: txt, md or csv",
						Value:   "txt",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PersonaList,
			},
			{
				Name:    "delete",
				Aliases: []string{"rm"},
				Usage:   "Delete a persona",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.PersonaDelete,
			},
			{
				Name:  "history",
				Usage: "Jobs submitted from this machine",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries",
						Value: 20,
					},
				},
				Action: r.PersonaHistory,
			},
		},
	}
}

// socialCommand handles likes
func socialCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "social",
		Usage: "Social interactions",
		Commands: []*cli.Command{
			{
				Name:  "like",
				Usage: "Toggle your like on a persona",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "likes",
						Usage: "Like count currently shown, used for the optimistic update",
					},
					&cli.BoolFlag{
						Name:  "liked",
						Usage: "Whether you currently like it",
					},
				},
				Action: r.SocialLike,
			},
			{
				Name:  "explore",
				Usage: "Browse the public feed",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "trending",
						Usage: "Show only the most liked personas",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SocialExplore,
			},
			{
				Name:  "profile",
				Usage: "Show a user's public page",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "username"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SocialProfile,
			},
		},
	}
}

// notificationsCommand handles the activity feed
func notificationsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"n"},
		Usage:   "Activity notifications",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show the latest notifications",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "read",
						Usage: "Mark everything as read after listing",
					},
				},
				Action: r.NotificationsList,
			},
			{
				Name:  "watch",
				Usage: "Refresh the unread count until interrupted",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Refresh interval (defaults to notifications.refresh_interval)",
					},
				},
				Action: r.NotificationsWatch,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls with the current session",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}
