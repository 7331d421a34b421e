// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packetd/respd/confengine"
	"github.com/packetd/respd/internal/sigs"
	"github.com/packetd/respd/logger"
	"github.com/packetd/respd/relay"
	"github.com/packetd/respd/server"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run as a RESP traffic relay",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := confengine.LoadConfigPath(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		if opt, ok := cfg.LoggerOptions(); ok {
			logger.SetOptions(opt)
		}

		r, err := relay.New(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create relay: %v\n", err)
			os.Exit(1)
		}
		go func() {
			if err := r.ListenAndServe(); err != nil {
				logger.Errorf("relay exited: %v", err)
			}
		}()

		srv, err := server.New(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
			os.Exit(1)
		}
		if srv != nil {
			srv.RegisterGetRoute("/relay/stats", r.StatsHandler)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					logger.Errorf("server exited: %v", err)
				}
			}()
		}

		<-sigs.Terminate()
		r.Close()
	},
	Example: "# respd relay --config respd.yaml",
}

var configPath string

func init() {
	relayCmd.Flags().StringVar(&configPath, "config", "respd.yaml", "Configuration file path")
	rootCmd.AddCommand(relayCmd)
}
