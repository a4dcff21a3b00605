package modapi

import (
	"encoding/json"
	"sort"

	"voxelfactory.io/internal/sim/catalogs"
)

func (s *Server) dispatch(req rpcRequest) rpcResponse {
	switch req.Method {
	case "item.list":
		return rpcOK(req.ID, s.listItems())
	case "recipe.list":
		return rpcOK(req.ID, s.listRecipes())
	case "machine.list":
		return rpcOK(req.ID, s.listMachines())
	case "biome.list":
		return rpcOK(req.ID, s.listBiomes())
	case "item.add":
		return s.addStub(req, func(id string) bool {
			_, ok := s.cats.Items.Index[id]
			return ok
		})
	case "recipe.add":
		return s.addStub(req, func(id string) bool {
			_, ok := s.cats.Recipes.ByID[id]
			return ok
		})
	case "machine.add":
		return s.addStub(req, func(id string) bool {
			_, ok := s.cats.Machines.ByID[id]
			return ok
		})
	default:
		return rpcErr(req.ID, codeMethodMissing, "unknown method: "+req.Method)
	}
}

func (s *Server) listItems() []catalogs.ItemDef {
	out := make([]catalogs.ItemDef, 0, len(s.cats.Items.Palette))
	for _, name := range s.cats.Items.Palette {
		out = append(out, s.cats.Items.Defs[name])
	}
	return out
}

func (s *Server) listRecipes() []catalogs.RecipeDef {
	out := make([]catalogs.RecipeDef, 0, len(s.cats.Recipes.ByID))
	for _, r := range s.cats.Recipes.ByID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecipeID < out[j].RecipeID })
	return out
}

func (s *Server) listMachines() []catalogs.MachineDef {
	out := make([]catalogs.MachineDef, 0, len(s.cats.Machines.ByID))
	for _, m := range s.cats.Machines.ByID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) listBiomes() []catalogs.BiomeDef {
	out := make([]catalogs.BiomeDef, 0, len(s.cats.Biomes.ByID))
	for _, b := range s.cats.Biomes.ByID {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type addParams struct {
	ID string `json:"id"`
}

type addResult struct {
	Accepted   bool   `json:"accepted"`
	Registered bool   `json:"registered"`
	ID         string `json:"id"`
}

// addStub validates an add request without mutating the catalogs. Runtime
// registration is a host concern; the stub gives mod authors early feedback
// on id format and collisions.
func (s *Server) addStub(req rpcRequest, exists func(id string) bool) rpcResponse {
	var p addParams
	if len(req.Params) == 0 {
		return rpcErr(req.ID, codeInvalidParams, "missing params")
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return rpcErr(req.ID, codeInvalidParams, "bad params: "+err.Error())
	}
	if p.ID == "" {
		return rpcErr(req.ID, codeInvalidParams, "missing id")
	}
	if !catalogs.ValidID(p.ID) {
		return rpcErr(req.ID, codeInvalidID, "invalid id (want namespace:name): "+p.ID)
	}
	if exists(p.ID) {
		return rpcErr(req.ID, codeAlreadyExists, "already exists: "+p.ID)
	}
	return rpcOK(req.ID, addResult{Accepted: true, Registered: false, ID: p.ID})
}
