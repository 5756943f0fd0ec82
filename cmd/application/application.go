// Package application provides the application interface for skinmap commands.
//
// Commands accept an Application instead of the concrete App so they can be
// tested with internal/cmd/application.Mock:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            sm, err := app.Client()
//	            if err != nil {
//	                return err
//	            }
//	            res, err := sm.Match(cmd.Context(), args[0], args[1])
//	            // ...
//	        },
//	    }
//	}
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/skinmap"
	"github.com/agentstation/skinmap/pkg/safety"
)

// Application provides what commands need from the app.
type Application interface {
	// Client returns the engine. Without options it is the shared instance
	// built from the configuration and closed on shutdown; with options a
	// new instance is built and the caller must close it.
	Client(opts ...skinmap.Option) (skinmap.Client, error)

	// Policy returns the configured safety policy.
	Policy() (*safety.Policy, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json or yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string
}
