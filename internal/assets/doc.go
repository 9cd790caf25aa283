// Package assets loads facility 3D models and extracts the named
// template meshes the twin spawns device instances from.
//
// A facility model is authored with one template mesh per product type,
// named so the product's mesh identifier appears somewhere in the mesh
// or node name ("Galaxy_UPS_500_Template" matches the identifier
// "galaxy_ups"). The provider scans the document once per load and
// resolves every identifier to its template, so the instance pool never
// searches the scene again — spawning is a single map lookup.
//
// Both the glTF JSON form (.gltf) and the binary container (.glb) are
// accepted; only the JSON chunk of a GLB is read, since the twin needs
// mesh names, vertex counts and base materials, not buffer payloads.
//
// # Usage
//
//	provider := assets.New(cfg.Assets)
//	index, err := provider.Load(ctx, "birmingham_dc.glb", tags)
//	if err != nil {
//	    return err
//	}
//	engine.InstallTemplates(index)
package assets
