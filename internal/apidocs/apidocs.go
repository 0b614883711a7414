// Package apidocs serves the static description of the HTTP API.
package apidocs

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	"sigs.k8s.io/yaml"
)

// BasePath is where the documents are mounted.
const BasePath = "/api/docs"

//go:embed swagger.yaml
var swaggerYAML []byte

// Docs holds the API description converted once at startup.
type Docs struct {
	yaml []byte
	json []byte
}

func New() (*Docs, error) {
	return load(swaggerYAML)
}

func load(src []byte) (*Docs, error) {
	data, err := yaml.YAMLToJSON(src)
	if err != nil {
		return nil, err
	}
	return &Docs{yaml: src, json: data}, nil
}

// Register mounts GET {BasePath}, {BasePath}/swagger.json and
// {BasePath}/swagger.yaml. The bare path serves JSON.
func (d *Docs) Register(r gin.IRoutes) {
	r.GET(BasePath, d.serveJSON)
	r.GET(BasePath+"/swagger.json", d.serveJSON)
	r.GET(BasePath+"/swagger.yaml", d.serveYAML)
}

func (d *Docs) serveJSON(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", d.json)
}

func (d *Docs) serveYAML(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", d.yaml)
}
