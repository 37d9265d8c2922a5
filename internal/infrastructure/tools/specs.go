package tools

import "github.com/greentravel/invoice-agent/internal/core/domain"

// Tool names form a closed set. Adding a tool means adding its spec here and
// its dispatch arm in registry.go; nothing is registered dynamically.
const (
	ToolRAGGetInvoiceData   = "rag_get_invoice_data"
	ToolCalcularVencimiento = "calcular_vencimiento"

	ToolListLiquidaciones    = "list_liquidaciones"
	ToolGetLiquidacion       = "get_liquidacion"
	ToolCreateLiquidacion    = "create_liquidacion"
	ToolUpdateLiquidacion    = "update_liquidacion"
	ToolDeleteLiquidacion    = "delete_liquidacion"
	ToolGetLiquidacionStats  = "get_liquidacion_stats"

	ToolListProvedores   = "list_provedores"
	ToolGetProvedor      = "get_provedor"
	ToolCreateProvedor   = "create_provedor"
	ToolUpdateProvedor   = "update_provedor"
	ToolDeleteProvedor   = "delete_provedor"
	ToolGetProvedorStats = "get_provedor_stats"
)

func objectSchema(required []string, properties map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func property(kind, description string) map[string]any {
	return map[string]any{"type": kind, "description": description}
}

func allSpecs() []domain.ToolSpec {
	return []domain.ToolSpec{
		{
			Name: ToolRAGGetInvoiceData,
			Description: "Obtiene información completa de una factura desde el sistema RAG. " +
				"USA ESTA HERRAMIENTA SIEMPRE que el usuario pregunte sobre facturas, mencione un número de factura, CUFE o NIT de proveedor. " +
				"Es la única forma de obtener información de facturas.",
			Parameters: objectSchema(nil, map[string]any{
				"invoice_number": property("string", "Número de factura a buscar (ej: HBE122090, E018-175709, FACT-12345)."),
				"cufe":           property("string", "CUFE de la factura (32 caracteres alfanuméricos)."),
				"provider_nit":   property("string", "NIT del proveedor."),
			}),
		},
		{
			Name: ToolCalcularVencimiento,
			Description: "Calcula la fecha de vencimiento de una factura a partir de la fecha de emisión y los días de crédito, " +
				"y determina si ya está vencida.",
			Parameters: objectSchema([]string{"fecha_emision", "dias_credito"}, map[string]any{
				"fecha_emision": property("string", "Fecha de emisión de la factura (YYYY-MM-DD, DD-MM-YYYY, DD/MM/YYYY o YYYY/MM/DD)."),
				"dias_credito":  property("integer", "Días de crédito otorgados (típicamente 30, 45, 60 o 90)."),
			}),
		},
		{
			Name:        ToolListLiquidaciones,
			Description: "Lista liquidaciones con paginación y filtros opcionales.",
			Parameters: objectSchema(nil, map[string]any{
				"page":       property("integer", "Número de página, inicia en 1."),
				"limit":      property("integer", "Elementos por página (1-100, default 50)."),
				"search":     property("string", "Búsqueda en nombre empresa, pasajero o asesor."),
				"estado":     property("integer", "Filtrar por estado (1=activo, 0=inactivo)."),
				"id_reserva": property("integer", "Filtrar por ID de reserva."),
				"factura":    property("integer", "Filtrar por número de factura."),
			}),
		},
		{
			Name:        ToolGetLiquidacion,
			Description: "Obtiene una liquidación específica por su ID.",
			Parameters: objectSchema([]string{"liquidacion_id"}, map[string]any{
				"liquidacion_id": property("integer", "ID único de la liquidación."),
			}),
		},
		{
			Name: ToolCreateLiquidacion,
			Description: "Crea una nueva liquidación. El campo 'data' es un JSON string con al menos 'observaciones'; " +
				"campos opcionales: id_reserva, nombre_asesor, nombre_empresa, nit_empresa, servicio, fecha_servicio, " +
				"numero_pasajeros, valor_liquidacion, iva, nombre_pasajero, fecha, factura, estado, origen_venta.",
			Parameters: objectSchema([]string{"data"}, map[string]any{
				"data": property("string", "JSON string con los datos de la liquidación."),
			}),
		},
		{
			Name:        ToolUpdateLiquidacion,
			Description: "Actualiza una liquidación existente con los campos presentes en 'data'.",
			Parameters: objectSchema([]string{"liquidacion_id", "data"}, map[string]any{
				"liquidacion_id": property("integer", "ID único de la liquidación a actualizar."),
				"data":           property("string", "JSON string con los campos a actualizar."),
			}),
		},
		{
			Name:        ToolDeleteLiquidacion,
			Description: "Elimina una liquidación (soft delete, la marca como inactiva).",
			Parameters: objectSchema([]string{"liquidacion_id"}, map[string]any{
				"liquidacion_id": property("integer", "ID único de la liquidación a eliminar."),
			}),
		},
		{
			Name:        ToolGetLiquidacionStats,
			Description: "Obtiene estadísticas agregadas de liquidaciones (total, activas, inactivas, por estado).",
			Parameters:  objectSchema(nil, map[string]any{}),
		},
		{
			Name:        ToolListProvedores,
			Description: "Lista proveedores con paginación y filtros opcionales.",
			Parameters: objectSchema(nil, map[string]any{
				"page":   property("integer", "Número de página, inicia en 1."),
				"limit":  property("integer", "Elementos por página (1-100, default 50)."),
				"search": property("string", "Búsqueda en nombre, razón social o identificación."),
				"estado": property("integer", "Filtrar por estado (1=activo, 0=inactivo)."),
				"tipo":   property("integer", "Filtrar por tipo de proveedor."),
				"ciudad": property("integer", "Filtrar por ID de ciudad."),
			}),
		},
		{
			Name:        ToolGetProvedor,
			Description: "Obtiene un proveedor específico por su ID.",
			Parameters: objectSchema([]string{"provedor_id"}, map[string]any{
				"provedor_id": property("integer", "ID único del proveedor."),
			}),
		},
		{
			Name: ToolCreateProvedor,
			Description: "Crea un nuevo proveedor. El campo 'data' es un JSON string; campos opcionales: provedor_hotel_code, " +
				"provedor_razonsocial, provedor_nombre, provedor_identificacion, provedor_direccion, provedor_telefono, " +
				"provedor_tipo, provedor_estado, provedor_ciudad, provedor_link_dropbox.",
			Parameters: objectSchema([]string{"data"}, map[string]any{
				"data": property("string", "JSON string con los datos del proveedor."),
			}),
		},
		{
			Name:        ToolUpdateProvedor,
			Description: "Actualiza un proveedor existente con los campos presentes en 'data'.",
			Parameters: objectSchema([]string{"provedor_id", "data"}, map[string]any{
				"provedor_id": property("integer", "ID único del proveedor a actualizar."),
				"data":        property("string", "JSON string con los campos a actualizar."),
			}),
		},
		{
			Name:        ToolDeleteProvedor,
			Description: "Elimina un proveedor (soft delete, lo marca como inactivo).",
			Parameters: objectSchema([]string{"provedor_id"}, map[string]any{
				"provedor_id": property("integer", "ID único del proveedor a eliminar."),
			}),
		},
		{
			Name:        ToolGetProvedorStats,
			Description: "Obtiene estadísticas agregadas de proveedores (total, activos, inactivos, por estado y tipo).",
			Parameters:  objectSchema(nil, map[string]any{}),
		},
	}
}
