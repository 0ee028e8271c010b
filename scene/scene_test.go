package scene

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
options:
  edge_link_distance: 0.01
node_types:
  - name: mud
    cost: 1000
islands:
  - mesh:
      vertices:
        - [0, 0, 0]
        - [1, 0, 0]
        - [1, 1, 0]
        - [0, 1, 0]
      polygons:
        - [0, 1, 2, 3]
      types: [0]
    position: [0, 0, 0]
agents:
  - position: [0.5, 0.5, 0]
    radius: 0.2
    desired_speed: 1
    max_speed: 1
    target: [0.9, 0.5, 0]
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f, err := ioutil.TempFile("", "scene-*.yml")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestLoadAndBuild(t *testing.T) {
	path := writeTemp(t, sampleYAML)

	s, err := Load(path)
	require.NoError(t, err)
	require.Len(t, s.Islands, 1)
	require.Len(t, s.Agents, 1)

	a, err := s.Build()
	require.NoError(t, err)
	require.NotNil(t, a)
}

func TestBuildRejectsUnknownNodeType(t *testing.T) {
	bad := sampleYAML + "\nislands_extra_unused: true\n"
	path := writeTemp(t, bad)
	s, err := Load(path)
	require.NoError(t, err)
	s.Islands[0].TypeMap = map[int]string{0: "does-not-exist"}

	_, err = s.Build()
	require.Error(t, err)
}
