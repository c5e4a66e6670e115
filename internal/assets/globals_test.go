package assets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobalsShim(t *testing.T) {
	provide := map[string]string{
		"$":      "jquery",
		"jQuery": "jquery",
		"_":      "lodash",
	}

	shim := globalsShim(provide, []string{"$", "_", "jQuery"})

	require.Equal(t, `import __provided0 from "jquery";
import __provided1 from "lodash";
export { __provided0 as $, __provided0 as jQuery };
export { __provided1 as _ };
`, string(shim))
}

func TestDigest(t *testing.T) {
	require.Equal(t, digest([]byte("a")), digest([]byte("a")))
	require.NotEqual(t, digest([]byte("a")), digest([]byte("b")))
	require.Regexp(t, `^[0-9a-f]{16}$`, digest(nil))
}
