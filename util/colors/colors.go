// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package colors

import (
	"fmt"
	"regexp"
)

var Red = "\033[31;1m"
var Blue = "\033[34;1m"
var Yellow = "\033[33;1m"
var Mint = "\033[38;5;48;1m"
var Grey = "\033[90m"

var Clear = "\033[0;0m"

func PrintBlue(args ...interface{}) {
	print(Blue)
	fmt.Print(args...)
	println(Clear)
}

func PrintGrey(args ...interface{}) {
	print(Grey)
	fmt.Print(args...)
	println(Clear)
}

func PrintMint(args ...interface{}) {
	print(Mint)
	fmt.Print(args...)
	println(Clear)
}

func PrintRed(args ...interface{}) {
	print(Red)
	fmt.Print(args...)
	println(Clear)
}

func PrintYellow(args ...interface{}) {
	print(Yellow)
	fmt.Print(args...)
	println(Clear)
}

func Uncolor(text string) string {
	uncolor := regexp.MustCompile("\x1b\\[([0-9]+;)*[0-9]+m")
	unwhite := regexp.MustCompile(`\s+`)

	text = uncolor.ReplaceAllString(text, "")
	return unwhite.ReplaceAllString(text, " ")
}
