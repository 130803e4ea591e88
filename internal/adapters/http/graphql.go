package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	issueType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ValidationIssue",
		Fields: graphql.Fields{
			"field":   &graphql.Field{Type: graphql.String},
			"message": &graphql.Field{Type: graphql.String},
			"code":    &graphql.Field{Type: graphql.String},
		},
	})

	resultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ValidationResult",
		Fields: graphql.Fields{
			"is_valid": &graphql.Field{Type: graphql.Boolean},
			"errors":   &graphql.Field{Type: graphql.NewList(issueType)},
			"warnings": &graphql.Field{Type: graphql.NewList(issueType)},
		},
	})

	geofenceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Geofence",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"slug":     &graphql.Field{Type: graphql.String},
			"fleet_id": &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"kind":     &graphql.Field{Type: graphql.String},
			"boundary": &graphql.Field{Type: graphql.NewList(geoPointType)},
			"color":    &graphql.Field{Type: graphql.String},
			"active":   &graphql.Field{Type: graphql.Boolean},
		},
	})

	fenceEventType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FenceEvent",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"time":          &graphql.Field{Type: graphql.DateTime},
			"device_id":     &graphql.Field{Type: graphql.String},
			"geofence_id":   &graphql.Field{Type: graphql.String},
			"type":          &graphql.Field{Type: graphql.String},
			"location":      &graphql.Field{Type: geoPointType},
			"dwell_seconds": &graphql.Field{Type: graphql.Int},
			"alerted":       &graphql.Field{Type: graphql.Boolean},
		},
	})

	positionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DevicePosition",
		Fields: graphql.Fields{
			"time":      &graphql.Field{Type: graphql.DateTime},
			"device_id": &graphql.Field{Type: graphql.String},
			"fleet_id":  &graphql.Field{Type: graphql.String},
			"location":  &graphql.Field{Type: geoPointType},
			"bearing":   &graphql.Field{Type: graphql.Float},
			"speed":     &graphql.Field{Type: graphql.Float},
		},
	})

	geoPointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "GeoPointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"geofences": &graphql.Field{
				Type:        graphql.NewList(geofenceType),
				Description: "List all geofences of a fleet",
				Args: graphql.FieldConfigArgument{
					"fleet_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					fleetID := p.Args["fleet_id"].(string)
					return deps.Fences.ListByFleet(p.Context, fleetID)
				},
			},
			"geofence": &graphql.Field{
				Type:        geofenceType,
				Description: "Get a geofence by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Fences.GetByID(p.Context, id)
				},
			},
			"geofenceBySlug": &graphql.Field{
				Type:        geofenceType,
				Description: "Resolve a fleet-scoped geofence slug",
				Args: graphql.FieldConfigArgument{
					"fleet_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"slug":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					fleetID := p.Args["fleet_id"].(string)
					slug := p.Args["slug"].(string)
					return deps.Fences.GetBySlug(p.Context, fleetID, slug)
				},
			},
			"fencesNearby": &graphql.Field{
				Type:        graphql.NewList(geofenceType),
				Description: "Active fences containing or near a point",
				Args: graphql.FieldConfigArgument{
					"fleet_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius":   &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					fleetID := p.Args["fleet_id"].(string)
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					return deps.Fences.FindNear(p.Context, fleetID, lat, lon, radius)
				},
			},
			"fenceEvents": &graphql.Field{
				Type:        graphql.NewList(fenceEventType),
				Description: "Recent enter/exit events for a geofence",
				Args: graphql.FieldConfigArgument{
					"geofence_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["geofence_id"].(string)
					limit := p.Args["limit"].(int)
					return deps.Events.ListByFence(p.Context, id, limit)
				},
			},
			"deviceEvents": &graphql.Field{
				Type:        graphql.NewList(fenceEventType),
				Description: "Recent fence events for a device",
				Args: graphql.FieldConfigArgument{
					"device_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["device_id"].(string)
					limit := p.Args["limit"].(int)
					return deps.Events.ListByDevice(p.Context, id, limit)
				},
			},
			"fleetPositions": &graphql.Field{
				Type:        graphql.NewList(positionType),
				Description: "Latest known position of every device in a fleet",
				Args: graphql.FieldConfigArgument{
					"fleet_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					fleetID := p.Args["fleet_id"].(string)
					return deps.Positions.LatestByFleet(p.Context, fleetID)
				},
			},
			"validateBoundary": &graphql.Field{
				Type:        resultType,
				Description: "Run boundary validation without persisting anything",
				Args: graphql.FieldConfigArgument{
					"coordinates": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(geoPointInput))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					raw, ok := p.Args["coordinates"].([]interface{})
					if !ok {
						return nil, fmt.Errorf("coordinates must be a list of points")
					}
					boundary := make(domain.Boundary, 0, len(raw))
					for _, item := range raw {
						m, ok := item.(map[string]interface{})
						if !ok {
							return nil, fmt.Errorf("coordinates must be a list of points")
						}
						lat, _ := m["lat"].(float64)
						lon, _ := m["lon"].(float64)
						boundary = append(boundary, domain.GeoPoint{Lat: lat, Lon: lon})
					}
					return geo.ValidateBoundary(boundary), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
