package gpgpu

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderFromWGSL compiles a WGSL shader module on the framework's
// device. The label shows up in device errors and debug tooling.
func ShaderFromWGSL(fw *Framework, source, label string) (*wgpu.ShaderModule, error) {
	module, err := fw.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return nil, fmt.Errorf("compile shader %q: %w", label, err)
	}

	return module, nil
}

// ShaderFromWGSLFile reads a WGSL file and compiles it, using the file
// name as the module label.
func ShaderFromWGSLFile(fw *Framework, path string) (*wgpu.ShaderModule, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shader file: %w", err)
	}

	return ShaderFromWGSL(fw, string(source), filepath.Base(path))
}
