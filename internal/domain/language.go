package domain

import "sort"

// Language maps a logical language name to the identifiers each sandbox backend expects
type Language struct {
	Name     string `json:"name" yaml:"name"`
	Version  string `json:"version" yaml:"version"`
	FileName string `json:"fileName" yaml:"file_name"`
	Judge0ID int    `json:"judge0Id" yaml:"judge0_id"`
}

// LanguageTable is keyed by logical language name
type LanguageTable map[string]Language

func DefaultLanguages() LanguageTable {
	return LanguageTable{
		"javascript": {Name: "javascript", Version: "20.11.1", FileName: "solution.js", Judge0ID: 63},
		"python":     {Name: "python", Version: "3.12.0", FileName: "solution.py", Judge0ID: 71},
		"java":       {Name: "java", Version: "15.0.2", FileName: "Solution.java", Judge0ID: 62},
		"cpp":        {Name: "cpp", Version: "10.2.0", FileName: "solution.cpp", Judge0ID: 54},
		"c":          {Name: "c", Version: "10.2.0", FileName: "solution.c", Judge0ID: 50},
	}
}

func (t LanguageTable) Lookup(name string) (Language, bool) {
	lang, ok := t[name]
	return lang, ok
}

// Names returns the language names in stable order
func (t LanguageTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the languages sorted by name
func (t LanguageTable) List() []Language {
	out := make([]Language, 0, len(t))
	for _, name := range t.Names() {
		out = append(out, t[name])
	}
	return out
}
