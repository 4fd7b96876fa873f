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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packtools/pkg/checksum"
)

var checksumCmd = &cobra.Command{
	Use:   "checksum",
	Short: "Work with prefixed checksums of the form '<algorithm>:<hex-value>'",
}

var checksumFormatCmd = &cobra.Command{
	Use:   "format <file>",
	Short: "Print the prefixed checksum of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runChecksumFormat,
}

var checksumFormatFlags struct {
	algo string
}

var checksumVerifyCmd = &cobra.Command{
	Use:   "verify <file> <checksum>",
	Short: "Verify a file against a prefixed checksum",
	Args:  cobra.ExactArgs(2),
	RunE:  runChecksumVerify,
}

var checksumVerifyFlags struct {
	requireStrong bool
}

var checksumNormalizeCmd = &cobra.Command{
	Use:   "normalize <checksum>",
	Short: "Print the checksum with its hex value lowercased",
	Args:  cobra.ExactArgs(1),
	RunE:  runChecksumNormalize,
}

func init() {
	rootCmd.AddCommand(checksumCmd)
	checksumCmd.AddCommand(checksumFormatCmd)
	checksumCmd.AddCommand(checksumVerifyCmd)
	checksumCmd.AddCommand(checksumNormalizeCmd)

	checksumFormatCmd.Flags().StringVar(&checksumFormatFlags.algo, "algo", string(checksum.DefaultAlgorithm),
		"The checksum algorithm. Can be one of 'sha256', 'sha512', 'blake2b', 'blake2s', 'md5' or 'adler32'.")
	checksumVerifyCmd.Flags().BoolVar(&checksumVerifyFlags.requireStrong, "require-strong", false,
		"Reject checksums produced by weak algorithms (md5, adler32).")
}

func runChecksumFormat(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	cs, err := checksum.Format(data, checksum.Algorithm(checksumFormatFlags.algo))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cs)
	return nil
}

func runChecksumVerify(cmd *cobra.Command, args []string) error {
	if checksumVerifyFlags.requireStrong && !checksum.IsStrong(args[1]) {
		return fmt.Errorf("checksum %q was not produced by a strong algorithm", args[1])
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if !checksum.Verify(data, args[1]) {
		return errors.New("checksum verification failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "OK")
	return nil
}

func runChecksumNormalize(cmd *cobra.Command, args []string) error {
	normalized, err := checksum.Normalize(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), normalized)
	return nil
}
