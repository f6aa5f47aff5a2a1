// Package catalog holds the round catalogue of each game mode and the default
// asset archetypes handed to every team. Presets read from YAML or JSON files
// may override archetype parameters for a whole game.
package catalog
