/*
Copyright © 2024 Ryan Painter paintersrp@gmail.com

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package initialize

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/erikgeiser/promptkit/confirmation"
	"github.com/erikgeiser/promptkit/selection"
	"github.com/erikgeiser/promptkit/textinput"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/state"
)

// Prompter asks the questions init needs answered.
type Prompter interface {
	Text(prompt, initial string) (string, error)
	Select(prompt string, choices []string) (string, error)
	Confirm(prompt string) (bool, error)
}

type promptkitPrompter struct{}

func (promptkitPrompter) Text(prompt, initial string) (string, error) {
	input := textinput.New(prompt)
	input.InitialValue = initial
	return input.RunPrompt()
}

func (promptkitPrompter) Select(prompt string, choices []string) (string, error) {
	return selection.New(prompt, choices).RunPrompt()
}

func (promptkitPrompter) Confirm(prompt string) (bool, error) {
	return confirmation.New(prompt, confirmation.Undecided).RunPrompt()
}

var newPrompter = func() Prompter { return promptkitPrompter{} }

func NewCmdInit(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "initialize",
		Aliases: []string{"i", "init"},
		Short:   "initialize recall",
		Long:    "This command will walk you through pointing recall at your OpenClaw directories and writing its configuration.",
		Example: "recall init",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := Run(s.Config, newPrompter()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", config.GetConfigPath(s.Config.Home()))
			return nil
		},
	}

	return cmd
}

var logLevels = []string{"info", "debug", "warn", "error"}

// Run prompts for each setting, starting from the current values, and saves
// the result.
func Run(cfg *config.Config, p Prompter) error {
	paths := cfg.ResolvedPaths()

	home, err := p.Text("OpenClaw home:", paths.OpenClawHome)
	if err != nil {
		return err
	}
	home = strings.TrimSpace(home)

	workspaceDefault, sessionsDefault := paths.Workspace, paths.Sessions
	if cfg.Paths.Workspace == "" {
		workspaceDefault = filepath.Join(home, "workspace")
	}
	if cfg.Paths.Sessions == "" {
		sessionsDefault = filepath.Join(home, "agents", "main", "sessions")
	}

	workspace, err := p.Text("Workspace directory:", workspaceDefault)
	if err != nil {
		return err
	}
	sessions, err := p.Text("Sessions directory:", sessionsDefault)
	if err != nil {
		return err
	}
	addr, err := p.Text("HTTP listen address:", cfg.Server.Addr)
	if err != nil {
		return err
	}
	label, err := p.Text("Assistant name in conversation logs:", cfg.Logger.AssistantLabel)
	if err != nil {
		return err
	}
	level, err := p.Select("Log level:", logLevels)
	if err != nil {
		return err
	}

	cfg.Paths.OpenClawHome = home
	cfg.Paths.Workspace = strings.TrimSpace(workspace)
	cfg.Paths.Sessions = strings.TrimSpace(sessions)
	cfg.Server.Addr = strings.TrimSpace(addr)
	cfg.Logger.AssistantLabel = strings.TrimSpace(label)
	cfg.Log.Level = level

	if cfg.Server.AuthSecret == "" {
		protect, err := p.Confirm("Require a token for the HTTP API?")
		if err != nil {
			return err
		}
		if protect {
			secret, err := p.Text("Token signing secret:", "")
			if err != nil {
				return err
			}
			cfg.Server.AuthSecret = strings.TrimSpace(secret)
		}
	}

	return cfg.Save()
}
