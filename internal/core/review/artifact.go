package review

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

var fixedSuffix = regexp.MustCompile(`_fixed_\d+$`)

// ArtifactPath returns the sandbox-relative path a rewriter should use for
// the artifact produced in round iteration. Any previous round suffix is
// dropped so names do not grow with every round:
//
//	app/main.py         + 1 -> app/main_fixed_1.py
//	app/main_fixed_1.py + 2 -> app/main_fixed_2.py
func ArtifactPath(current string, iteration int) string {
	dir, file := path.Split(current)
	ext := path.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	stem = fixedSuffix.ReplaceAllString(stem, "")
	return dir + stem + "_fixed_" + strconv.Itoa(iteration) + ext
}
