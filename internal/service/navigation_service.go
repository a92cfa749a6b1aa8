package service

import "github.com/stemsi/quizdesk-portal/internal/model"

// Navigation is the sidebar payload.
type Navigation struct {
	Role  model.Role       `json:"role"`
	Items []model.MenuItem `json:"items"`
}

// NavigationService filters the sidebar by the capabilities in a session.
type NavigationService struct {
	menu []model.MenuItem
}

// NewNavigationService creates a NavigationService over the standard menu.
func NewNavigationService() *NavigationService {
	return &NavigationService{menu: model.Menu}
}

// For returns the menu items claims may see, in display order.
func (s *NavigationService) For(claims *Claims) Navigation {
	items := make([]model.MenuItem, 0, len(s.menu))
	for _, item := range s.menu {
		if claims.Can(item.Requires) {
			items = append(items, item)
		}
	}
	return Navigation{Role: claims.Role, Items: items}
}
