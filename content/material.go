package content

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed shaders/terrain.wgsl
var terrainShaderWGSL string

// Material is a compiled shader shared by every patch of a level.
type Material struct {
	Name  string
	WGSL  string
	SPIRV []byte
}

// CompileMaterial compiles WGSL source to SPIR-V.
func CompileMaterial(name, wgsl string) (*Material, error) {
	spirv, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("content: compile material %q: %w", name, err)
	}
	return &Material{Name: name, WGSL: wgsl, SPIRV: spirv}, nil
}

// TerrainShaderSource returns the WGSL source of the built-in terrain material.
func TerrainShaderSource() string {
	return terrainShaderWGSL
}

// TerrainMaterial compiles the built-in terrain material.
func TerrainMaterial() (*Material, error) {
	return CompileMaterial("terrain", terrainShaderWGSL)
}
