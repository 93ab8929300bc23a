package category

import (
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-finance-tracker/model"
)

// Summary is the short form of a category used for parents and children.
type Summary struct {
	ID        uuid.UUID  `json:"id" msgpack:"id"`
	Name      string     `json:"name" msgpack:"name"`
	Kind      model.Kind `json:"type" msgpack:"type"`
	ParentID  *uuid.UUID `json:"parentCategoryId" msgpack:"parentCategoryId"`
	CreatedAt time.Time  `json:"createdAt" msgpack:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" msgpack:"updatedAt"`
}

// View is what the service returns for a category. OwnerID travels with
// cached copies so a hit can be checked against the caller; it is never
// serialized to clients.
type View struct {
	Summary       `msgpack:",inline"`
	OwnerID       uuid.UUID `json:"-" msgpack:"ownerId"`
	Parent        *Summary  `json:"parentCategory,omitempty" msgpack:"parentCategory"`
	Subcategories []Summary `json:"subcategories" msgpack:"subcategories"`
}

func summarize(c *model.Category) Summary {
	s := Summary{
		ID:        c.ID,
		Name:      c.Name,
		Kind:      c.Kind,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
	if c.HasParent() {
		id := *c.ParentID
		s.ParentID = &id
	}
	return s
}

func newView(c *model.Category, parent *model.Category, children []*model.Category) View {
	v := View{
		Summary:       summarize(c),
		OwnerID:       c.OwnerID,
		Subcategories: make([]Summary, 0, len(children)),
	}
	if parent != nil {
		p := summarize(parent)
		v.Parent = &p
	}
	for _, child := range children {
		v.Subcategories = append(v.Subcategories, summarize(child))
	}
	return v
}

// buildTree returns the roots of categories in input order, each carrying
// its children from the same slice. Children whose parent is absent from
// the slice are dropped, since a list is filtered by kind and a child's
// kind always matches its parent's.
func buildTree(categories []*model.Category) []View {
	children := make(map[uuid.UUID][]*model.Category)
	var roots []*model.Category
	for _, c := range categories {
		if c.HasParent() {
			children[*c.ParentID] = append(children[*c.ParentID], c)
			continue
		}
		roots = append(roots, c)
	}

	views := make([]View, 0, len(roots))
	for _, r := range roots {
		views = append(views, newView(r, nil, children[r.ID]))
	}
	return views
}
