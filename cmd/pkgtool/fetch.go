/*
Copyright 2025 The Packtools authors

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

package main

import (
	"github.com/spf13/cobra"

	"github.com/packtools/pkg/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url> <checksum> <dest>",
	Short: "Download a file and verify it against a prefixed checksum",
	Args:  cobra.ExactArgs(3),
	RunE:  runFetch,
}

var fetchFlags struct {
	retries         int
	maxDownloadSize int
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().IntVar(&fetchFlags.retries, "retries", 3,
		"The number of retries when the file server responds with 5xx errors.")
	fetchCmd.Flags().IntVar(&fetchFlags.maxDownloadSize, "max-download-size", 0,
		"The maximum download size in bytes. Zero disables the guard.")
}

func runFetch(cmd *cobra.Command, args []string) error {
	fetcher := fetch.NewFileFetcher(fetchFlags.retries, fetchFlags.maxDownloadSize)
	if err := fetcher.Fetch(args[0], args[1], args[2]); err != nil {
		return err
	}
	log.Info("file fetched and verified", "url", args[0], "dest", args[2])
	return nil
}
