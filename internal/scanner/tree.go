package scanner

import (
	"path"
	"slices"
	"strings"

	"github.com/huangsam/repolens/schema"
)

// maxTreeDepth limits how deep the directory tree is reported.
const maxTreeDepth = 6

// buildTree assembles the directory tree from slash-relative directory paths.
// FileCount on each node counts files directly inside that directory.
func buildTree(rootName string, dirs []string, dirFiles map[string]int) *schema.DirectoryNode {
	children := make(map[string][]string)
	for _, dir := range dirs {
		if strings.Count(dir, "/")+1 > maxTreeDepth {
			continue
		}
		parent := path.Dir(dir)
		children[parent] = append(children[parent], dir)
	}

	var build func(name, dir string) schema.DirectoryNode
	build = func(name, dir string) schema.DirectoryNode {
		node := schema.DirectoryNode{Name: name, Path: dir, FileCount: dirFiles[dir]}
		kids := children[dir]
		slices.Sort(kids)
		for _, kid := range kids {
			node.Children = append(node.Children, build(path.Base(kid), kid))
		}
		return node
	}

	root := build(rootName, ".")
	return &root
}
