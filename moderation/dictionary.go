package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"nojschat/errors"
)

//go:embed dict/*.txt
var dictFS embed.FS

// Dictionary carries the loaded word list plus metadata for logging.
type Dictionary struct {
	Words     []string
	Languages []string
}

// LoadDictionary reads every .txt file under dict/ in the embedded
// filesystem. Each file is one language (en.txt -> "en"), one word per line.
func LoadDictionary() (*Dictionary, error) {
	return loadDictionary(dictFS, "dict")
}

func loadDictionary(dict fs.FS, path string) (*Dictionary, error) {
	entries, err := fs.ReadDir(dict, path)
	if err != nil {
		return nil, err
	}

	var languages []string
	unique := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(dict, path+"/"+entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles \n and \r\n line endings alike.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" && !strings.HasPrefix(line, "#") {
				unique[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	sort.Strings(words)

	return &Dictionary{Words: words, Languages: languages}, nil
}
