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
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/packetd/respd/common"
	"github.com/packetd/respd/pipeline"
	"github.com/packetd/respd/resp"
)

var dumpStreaming bool

var dumpCmd = &cobra.Command{
	Use:   "dump [file]",
	Short: "Decode a RESP byte stream and print each message as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		var r io.Reader = os.Stdin
		if len(args) > 0 {
			f, err := os.Open(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to open file: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			r = f
		}

		opts := common.NewOptions()
		opts.Merge("streaming", dumpStreaming)

		sess, err := pipeline.NewSession(func(msg *resp.Message) {
			b, merr := json.Marshal(msg)
			if merr != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal message: %v\n", merr)
			} else {
				fmt.Fprintln(os.Stdout, string(b))
			}
			_ = msg.Release()
		}, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create session: %v\n", err)
			os.Exit(1)
		}
		defer sess.Close()

		if err := sess.Run(r); err != nil {
			fmt.Fprintf(os.Stderr, "failed to decode stream: %v\n", err)
			os.Exit(1)
		}
	},
	Example: "# cat traffic.bin | respd dump --stream",
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpStreaming, "stream", false, "Print raw tokens instead of aggregated messages")
	rootCmd.AddCommand(dumpCmd)
}
