/*
 * Copyright (c) 2022, Gideon Williams <gideon@gideonw.com>
 * Copyright (c) 2022-2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package shell

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/dburkart/pubkit/cmd/pubkit/session"
	"github.com/dburkart/pubkit/pkg/generator"
	"github.com/dburkart/pubkit/pkg/repl"
)

var Command = &cobra.Command{
	Use:   "shell",
	Short: "Interactive terminal for inspecting channels",

	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session.Open(session.Options())
		if err != nil {
			return err
		}
		defer s.Close()

		return readlinePrompt(cmd.Context(), repl.NewShell(s.Client, s.Out, s.Log))
	},
}

func filterStringSlice(s []string, prefix string) []string {
	retList := []string{}
	for i := range s {
		if strings.HasPrefix(s[i], prefix) {
			retList = append(retList, s[i])
		}
	}
	return retList
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// listChannels completes channel names for commands that take one.
func listChannels(sh *repl.Shell, command string) func(string) []string {
	return func(line string) []string {
		lineChannel := strings.TrimPrefix(line, command)
		lineChannel = strings.TrimPrefix(lineChannel, " ")
		return filterStringSlice(sh.Channels(), lineChannel)
	}
}

func makeTypeOptions() []readline.PrefixCompleterInterface {
	ret := []readline.PrefixCompleterInterface{}
	for i := range generator.Types {
		ret = append(ret, readline.PcItem(generator.Types[i]))
	}
	return ret
}

func readlinePrompt(ctx context.Context, sh *repl.Shell) error {
	// Configure the completer
	completer := readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("count", readline.PcItemDynamic(listChannels(sh, "count"))),
		readline.PcItem("fetch", readline.PcItemDynamic(listChannels(sh, "fetch"))),
		readline.PcItem("publish", readline.PcItemDynamic(listChannels(sh, "publish"))),
		readline.PcItem("time"),
		readline.PcItem("channels"),
		readline.PcItem("types", makeTypeOptions()...),
		readline.PcItem("exit"),
	)

	// Setup the readline executor
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31m>\033[0m ",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	// Handle input
	for {
		ln := rl.Line()
		if ln.CanContinue() {
			continue
		} else if ln.CanBreak() {
			break
		}
		line := strings.TrimSpace(ln.Line)
		if line == "" {
			continue
		}

		if strings.ToUpper(line) == "TYPES" || strings.HasPrefix(strings.ToUpper(line), "TYPES ") {
			fmt.Println(strings.Join(generator.Types, "\n"))
			continue
		}

		cmd, err := repl.ParseCommand([]byte(line))
		if err != nil {
			sh.Log.Error().Err(err).Send()
			continue
		}

		switch cmd.Name {
		case repl.CommandHelp:
			fmt.Println("usage:")
			fmt.Println(completer.Tree("    "))
			continue
		case repl.CommandExit:
			rl.Clean()
			return nil
		}

		// Each command can be interrupted on its own without leaving the shell
		cmdCtx, stop := session.Context(ctx)
		err = sh.Execute(cmdCtx, cmd)
		stop()
		if err != nil {
			sh.Log.Error().Err(err).Send()
		}
		fmt.Fprintln(os.Stdout)
	}
	rl.Clean()
	return nil
}
