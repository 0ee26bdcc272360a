package commands

import (
	"fmt"
	"sync"
)

// World is the minimal shared state behind move/pickup/drop. Everyone starts
// in the lobby; items sit in rooms until someone carries them away.
type World struct {
	mu        sync.Mutex
	rooms     map[string]*room
	location  map[string]string
	inventory map[string][]string
}

type room struct {
	exits map[string]string
	items []string
}

func NewWorld() *World {
	return &World{
		rooms: map[string]*room{
			"lobby": {
				exits: map[string]string{"north": "library", "east": "courtyard"},
				items: []string{"lantern"},
			},
			"library": {
				exits: map[string]string{"south": "lobby"},
				items: []string{"dusty tome"},
			},
			"courtyard": {
				exits: map[string]string{"west": "lobby"},
				items: []string{"pebble"},
			},
		},
		location:  make(map[string]string),
		inventory: make(map[string][]string),
	}
}

func (w *World) roomOf(userID string) string {
	if loc, ok := w.location[userID]; ok {
		return loc
	}
	return "lobby"
}

// Move walks the user through an exit and returns the destination room name.
func (w *World) Move(userID, direction string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := w.roomOf(userID)
	dest, ok := w.rooms[current].exits[direction]
	if !ok {
		return "", fmt.Errorf("you can't go %s from the %s", direction, current)
	}
	w.location[userID] = dest
	return dest, nil
}

// Pickup moves an item from the user's current room into their inventory.
func (w *World) Pickup(userID, item string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := w.rooms[w.roomOf(userID)]
	for i, it := range current.items {
		if it == item {
			current.items = append(current.items[:i], current.items[i+1:]...)
			w.inventory[userID] = append(w.inventory[userID], item)
			return nil
		}
	}
	return fmt.Errorf("there is no %s here", item)
}

// Drop moves an item from the user's inventory into their current room.
func (w *World) Drop(userID, item string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	carried := w.inventory[userID]
	for i, it := range carried {
		if it == item {
			w.inventory[userID] = append(carried[:i], carried[i+1:]...)
			current := w.rooms[w.roomOf(userID)]
			current.items = append(current.items, item)
			return nil
		}
	}
	return fmt.Errorf("you are not carrying a %s", item)
}

// Location reports which room the user currently occupies.
func (w *World) Location(userID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.roomOf(userID)
}
