// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"encoding/gob"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/pkg/assembler"
)

var helpvar bool
var debugvar bool
var quietvar bool
var outvar string

const usage = "gochip8-asm [-debug] [-out outfile] filename"

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'.c8db'",
	)
	flag.BoolVar(&quietvar, "quiet", false, "Only logs errors")
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
	flag.Parse()
}

// printTokenError prints err followed by the offending source line with the
// token underlined.
func printTokenError(w io.Writer, prefix string, err error, input io.ReadSeeker) {
	var tokenErr assembler.TokenError

	if input == os.Stdin || !errors.As(err, &tokenErr) {
		fmt.Fprintf(w, "%s %s\n", prefix, err)
		return
	}

	cursor := tokenErr.GetPosition()

	if _, seekErr := input.Seek(cursor.LineByte, io.SeekStart); seekErr != nil {
		fmt.Fprintf(w, "%s %s\n", prefix, err)
		return
	}

	line, _ := bufio.NewReader(input).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")

	column := int(cursor.Byte - cursor.LineByte)
	underline := strings.Repeat(" ", column) + "^" +
		strings.Repeat("~", max(int(cursor.Size)-1, 0))

	fmt.Fprintf(
		w,
		"%s %s\n%s\n\033[31m%s\033[0m\n",
		prefix, err, line, underline,
	)
}

func gochip8_asm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	cfg := log.DefaultConfig()

	if quietvar {
		cfg.Level = log.ErrorLevel
	}

	logger := log.NewWithConfig(cfg)

	args := flag.Args()

	var infile string
	var prefix string
	var input io.ReadSeeker

	if stat, _ := os.Stdin.Stat(); stat.Mode()&os.ModeCharDevice == 0 && len(args) == 0 {
		input = os.Stdin
		prefix = "\033[1m<stdin>:\033[0m"

		if outvar == "" {
			outvar = "out.ch8"
		}
	} else {
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, usage)
			return 1
		}

		file, err := os.Open(args[0])

		if err != nil {
			logger.Error("Opening source failed", log.Err(err))
			return 1
		}

		defer file.Close()

		filename := filepath.Base(file.Name())

		if stat, err := file.Stat(); err != nil {
			logger.Error("Reading source failed", log.Err(err))
			return 1
		} else if stat.IsDir() {
			logger.Error("Not a valid CHIP-8 assembly file",
				log.String("path", args[0]),
			)
			return 1
		}

		input = file
		infile = file.Name()
		prefix = fmt.Sprintf("\033[1m%s:\033[0m", filename)

		if outvar == "" {
			outvar = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".ch8"
		}
	}

	var symtable *assembler.SymTable

	if debugvar {
		source := ""

		if input != os.Stdin {
			if abs, err := filepath.Abs(infile); err == nil {
				source = abs
			} else {
				logger.Warn("Resolving source path failed", log.Err(err))
			}
		}

		symtable = assembler.NewSymTable(source)
	}

	result, errs := assembler.Assemble(input, symtable)

	if len(errs) > 0 {
		for _, err := range errs {
			printTokenError(os.Stderr, prefix, err, input)
		}

		return 1
	}

	if err := os.WriteFile(outvar, result, 0666); err != nil {
		logger.Error("Error writing output file", log.Err(err))
		return 1
	}

	logger.Info("Program assembled",
		log.String("output", outvar),
		log.Int("bytes", len(result)),
	)

	if debugvar {
		filename := strings.TrimSuffix(outvar, filepath.Ext(outvar)) + ".c8db"

		file, err := os.Create(filename)

		if err != nil {
			logger.Error("Error creating symbol table", log.Err(err))
			return 1
		}

		defer file.Close()

		if err := gob.NewEncoder(file).Encode(symtable); err != nil {
			logger.Error("Error writing symbol table", log.Err(err))
			return 1
		}
	}

	return 0
}

func main() {
	os.Exit(gochip8_asm())
}
